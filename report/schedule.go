package report

import (
	"context"
	"log/slog"
	"time"

	"vipgate.org/core/gateway/queue"
)

// Schedule fires the weekly report on a fixed weekday and the monthly
// report check daily, both at fixed times of day in the reporting zone.
// Triggered runs go through the job queue so a slow partner sweep never
// blocks the timers.
type Schedule struct {
	reporter *Reporter
	queue    *queue.Queue
	zone     *time.Location

	weeklyDay   time.Weekday
	weeklyHour  int
	weeklyMin   int
	monthlyHour int
	monthlyMin  int

	logger *slog.Logger
}

type ScheduleConfig struct {
	Reporter *Reporter
	Queue    *queue.Queue
	Zone     *time.Location

	WeeklyDay     time.Weekday
	WeeklyHour    int
	WeeklyMinute  int
	MonthlyHour   int
	MonthlyMinute int

	Logger *slog.Logger
}

func NewSchedule(cfg ScheduleConfig) *Schedule {
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Schedule{
		reporter:    cfg.Reporter,
		queue:       cfg.Queue,
		zone:        cfg.Zone,
		weeklyDay:   cfg.WeeklyDay,
		weeklyHour:  cfg.WeeklyHour,
		weeklyMin:   cfg.WeeklyMinute,
		monthlyHour: cfg.MonthlyHour,
		monthlyMin:  cfg.MonthlyMinute,
		logger:      cfg.Logger,
	}
}

// Start launches both trigger loops. They exit when ctx is cancelled.
func (s *Schedule) Start(ctx context.Context) {
	go s.loop(ctx, "weekly-report", s.nextWeekly, func() {
		s.queue.Enqueue(queue.Job{
			Name: "weekly-report",
			Run:  s.reporter.RunWeekly,
		})
	})

	go s.loop(ctx, "monthly-report", s.nextDaily, func() {
		s.queue.Enqueue(queue.Job{
			Name: "monthly-report",
			Run: func(ctx context.Context) error {
				return s.reporter.RunMonthly(ctx, time.Now())
			},
		})
	})
}

func (s *Schedule) loop(ctx context.Context, name string, next func(time.Time) time.Time, fire func()) {
	for {
		at := next(time.Now())
		s.logger.Info("next trigger", "job", name, "at", at)

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			fire()
		}
	}
}

func (s *Schedule) nextWeekly(now time.Time) time.Time {
	n := now.In(s.zone)
	at := time.Date(n.Year(), n.Month(), n.Day(), s.weeklyHour, s.weeklyMin, 0, 0, s.zone)
	days := (int(s.weeklyDay) - int(at.Weekday()) + 7) % 7
	at = at.AddDate(0, 0, days)
	if !at.After(n) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

func (s *Schedule) nextDaily(now time.Time) time.Time {
	n := now.In(s.zone)
	at := time.Date(n.Year(), n.Month(), n.Day(), s.monthlyHour, s.monthlyMin, 0, 0, s.zone)
	if !at.After(n) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
