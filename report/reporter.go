// Package report produces the periodic admin summaries of partner-reported
// trading volume across verified members.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"vipgate.org/core/partner"
)

const (
	WeeklyTitle  = "📊 Weekly admin report"
	MonthlyTitle = "📊 Monthly admin report"
)

type Store interface {
	MemberUIDs() ([]string, error)
	MemberCount() (int, error)
}

type Lookup interface {
	CachedInviteeDetail(ctx context.Context, uid string) (partner.InviteeDetail, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Reporter struct {
	store      Store
	lookup     Lookup
	notifier   Notifier
	adminIDs   []int64
	zone       *time.Location
	monthlyDay int
	email      *Email
	logger     *slog.Logger
}

type Config struct {
	Store      Store
	Lookup     Lookup
	Notifier   Notifier
	AdminIDs   []int64
	Zone       *time.Location
	MonthlyDay int
	Email      *Email // nil disables the email copy
	Logger     *slog.Logger
}

func New(cfg Config) *Reporter {
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.MonthlyDay == 0 {
		cfg.MonthlyDay = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reporter{
		store:      cfg.Store,
		lookup:     cfg.Lookup,
		notifier:   cfg.Notifier,
		adminIDs:   cfg.AdminIDs,
		zone:       cfg.Zone,
		monthlyDay: cfg.MonthlyDay,
		email:      cfg.Email,
		logger:     cfg.Logger,
	}
}

// Generate sums the partner-reported monthly volume across all stored
// members. A uid whose lookup fails contributes zero; one flaky lookup
// never aborts the sweep.
func (r *Reporter) Generate(ctx context.Context, title string) (string, error) {
	uids, err := r.store.MemberUIDs()
	if err != nil {
		return "", fmt.Errorf("listing member uids: %w", err)
	}

	var total float64
	for _, uid := range uids {
		detail, err := r.lookup.CachedInviteeDetail(ctx, uid)
		if err != nil {
			r.logger.Warn("invitee lookup failed, counting zero", "uid", uid, "err", err)
			continue
		}
		total += detail.Volume()
	}

	count, err := r.store.MemberCount()
	if err != nil {
		return "", fmt.Errorf("counting members: %w", err)
	}

	text := fmt.Sprintf(
		"%s\n\nActive members: %s\nAccumulated monthly volume: %s USDT",
		title,
		humanize.Comma(int64(count)),
		humanize.Comma(int64(math.Round(total))),
	)
	return text, nil
}

// Run generates the report and fans it out to every admin recipient.
// Delivery failures are logged per recipient and do not stop the fan-out.
func (r *Reporter) Run(ctx context.Context, title string) error {
	text, err := r.Generate(ctx, title)
	if err != nil {
		return err
	}

	for _, adminID := range r.adminIDs {
		if err := r.notifier.SendMessage(ctx, adminID, text); err != nil {
			r.logger.Error("failed to deliver report", "admin", adminID, "err", err)
		}
	}

	if r.email != nil {
		if err := r.email.Send(title, text); err != nil {
			r.logger.Error("failed to email report", "err", err)
		}
	}

	return nil
}

func (r *Reporter) RunWeekly(ctx context.Context) error {
	return r.Run(ctx, WeeklyTitle)
}

// RunMonthly is fired daily by the schedule but only reports on the
// configured day of the month, evaluated in the reporting time zone. The
// underlying schedule has no last-day-of-month trigger, hence the guard.
func (r *Reporter) RunMonthly(ctx context.Context, now time.Time) error {
	if now.In(r.zone).Day() != r.monthlyDay {
		return nil
	}
	return r.Run(ctx, MonthlyTitle)
}
