// Package gateway wires the membership-verification service: it consumes
// chat transport updates, decides applications against the partner
// affiliate API, persists verified members, and schedules admin reports.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urfave/cli/v3"

	"vipgate.org/core/gateway/config"
	"vipgate.org/core/gateway/db"
	"vipgate.org/core/gateway/queue"
	"vipgate.org/core/log"
	"vipgate.org/core/partner"
	"vipgate.org/core/report"
	"vipgate.org/core/telegram"
)

// Transport is the outbound half of the chat platform: notices to
// applicants and admins, plus finalizing an approved join.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageHTML(ctx context.Context, chatID int64, text string) error
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
}

// AffiliateVerifier answers whether a uid is a tracked referral.
type AffiliateVerifier interface {
	InviteeDetail(ctx context.Context, uid string) (partner.InviteeDetail, error)
}

type Gateway struct {
	cfg       *config.Config
	db        *db.DB
	partner   AffiliateVerifier
	transport Transport
	queue     *queue.Queue
	reporter  *report.Reporter
	l         *slog.Logger
}

func New(cfg *config.Config, d *db.DB, verifier AffiliateVerifier, transport Transport, q *queue.Queue, reporter *report.Reporter, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:       cfg,
		db:        d,
		partner:   verifier,
		transport: transport,
		queue:     q,
		reporter:  reporter,
		l:         logger,
	}
}

func Command() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "run the verification gateway",
		Action: Run,
		Description: `
Environment variables:
	VIPGATE_SERVER_DB_PATH          (default: vipgate.db)
	VIPGATE_SERVER_OPS_ADDR         (default: 127.0.0.1:6580)
	VIPGATE_TELEGRAM_TOKEN          (required)
	VIPGATE_TELEGRAM_CHAT_ID        (required)
	VIPGATE_TELEGRAM_ADMIN_IDS      (comma-separated list)
	VIPGATE_TELEGRAM_BYPASS_TOKEN   (insecure default, override it)
	VIPGATE_PARTNER_BASE_URL        (default: https://www.okx.com/api/v5)
	VIPGATE_PARTNER_API_KEY         (required)
	VIPGATE_PARTNER_API_SECRET      (required)
	VIPGATE_PARTNER_PASSPHRASE      (required)
	VIPGATE_REPORT_TIMEZONE         (default: America/Argentina/Buenos_Aires)
	VIPGATE_REPORT_WEEKLY_DAY       (default: Sunday)
	VIPGATE_REPORT_MONTHLY_DAY      (default: 30)
	VIPGATE_RESEND_API_KEY          (optional email copy of reports)
`,
	}
}

func Run(ctx context.Context, _ *cli.Command) error {
	logger := log.FromContext(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d, err := db.Make(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to setup db: %w", err)
	}

	pc, err := partner.NewClient(cfg.Partner.BaseURL, cfg.Partner.APIKey, cfg.Partner.APISecret, cfg.Partner.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to setup partner client: %w", err)
	}

	tc := telegram.New(cfg.Telegram.Token)

	jq := queue.New(16, log.New("queue"))
	jq.Start(ctx)

	reporter, sched, err := buildReporting(cfg, d, pc, tc, jq)
	if err != nil {
		return err
	}
	sched.Start(ctx)

	g := New(cfg, d, pc, tc, jq, reporter, logger)

	poller := telegram.NewPoller(tc, log.New("poller"))
	go func() {
		logger.Info("starting update poller")
		if err := poller.Run(ctx, g.Ingest); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("poller stopped", "err", err)
		}
	}()

	logger.Info("starting ops server", "address", cfg.Server.OpsAddr)
	logger.Error("ops server error", "error", http.ListenAndServe(cfg.Server.OpsAddr, g.Router()))

	return nil
}

func buildReporting(cfg *config.Config, d *db.DB, pc *partner.Client, tc *telegram.Client, jq *queue.Queue) (*report.Reporter, *report.Schedule, error) {
	zone, err := cfg.Report.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid reporting timezone: %w", err)
	}
	weekday, err := cfg.Report.Weekday()
	if err != nil {
		return nil, nil, err
	}
	weeklyHour, weeklyMin, err := config.ParseClock(cfg.Report.WeeklyTime)
	if err != nil {
		return nil, nil, err
	}
	monthlyHour, monthlyMin, err := config.ParseClock(cfg.Report.MonthlyTime)
	if err != nil {
		return nil, nil, err
	}

	var email *report.Email
	if cfg.Resend.APIKey != "" && cfg.Resend.To != "" {
		email = &report.Email{
			APIKey: cfg.Resend.APIKey,
			From:   cfg.Resend.From,
			To:     cfg.Resend.To,
		}
	}

	reporter := report.New(report.Config{
		Store:      d,
		Lookup:     pc,
		Notifier:   tc,
		AdminIDs:   cfg.Telegram.AdminIDs,
		Zone:       zone,
		MonthlyDay: cfg.Report.MonthlyDay,
		Email:      email,
		Logger:     log.New("report"),
	})

	sched := report.NewSchedule(report.ScheduleConfig{
		Reporter:      reporter,
		Queue:         jq,
		Zone:          zone,
		WeeklyDay:     weekday,
		WeeklyHour:    weeklyHour,
		WeeklyMinute:  weeklyMin,
		MonthlyHour:   monthlyHour,
		MonthlyMinute: monthlyMin,
		Logger:        log.New("schedule"),
	})

	return reporter, sched, nil
}

// ReportCommand generates one report immediately and exits. It is the
// manual retry path, so the monthly day guard does not apply.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "generate and deliver an admin report now",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "period",
				Usage: "weekly or monthly",
				Value: "weekly",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			d, err := db.Make(cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("failed to setup db: %w", err)
			}
			defer d.Close()

			pc, err := partner.NewClient(cfg.Partner.BaseURL, cfg.Partner.APIKey, cfg.Partner.APISecret, cfg.Partner.Passphrase)
			if err != nil {
				return fmt.Errorf("failed to setup partner client: %w", err)
			}

			tc := telegram.New(cfg.Telegram.Token)

			reporter, _, err := buildReporting(cfg, d, pc, tc, nil)
			if err != nil {
				return err
			}

			title := report.WeeklyTitle
			if cmd.String("period") == "monthly" {
				title = report.MonthlyTitle
			}
			return reporter.Run(ctx, title)
		},
	}
}
