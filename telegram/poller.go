package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

const pollTimeout = 25 // seconds

// Ingester handles one update. Errors are logged and never stop the poll
// loop; one applicant's failure must not block the others.
type Ingester func(ctx context.Context, update Update) error

type Poller struct {
	client *Client
	logger *slog.Logger
}

func NewPoller(client *Client, logger *slog.Logger) *Poller {
	return &Poller{client: client, logger: logger}
}

// Run long-polls for updates and dispatches each one in arrival order. It
// returns only when ctx is cancelled.
func (p *Poller) Run(ctx context.Context, ingest Ingester) error {
	retryOpts := []retry.Option{
		retry.Attempts(0), // infinite attempts
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(2 * time.Second),
		retry.MaxDelay(5 * time.Minute),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Info("retrying poll", "attempt", n+1, "err", err)
		}),
		retry.Context(ctx),
	}

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var updates []Update
		err := retry.Do(func() error {
			var err error
			updates, err = p.client.GetUpdates(ctx, offset, pollTimeout)
			return err
		}, retryOpts...)
		if err != nil {
			// retry.Do only gives up once ctx is cancelled
			return err
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if err := ingest(ctx, update); err != nil {
				p.logger.Error("failed to process update", "update_id", update.UpdateID, "err", err)
			}
		}
	}
}
