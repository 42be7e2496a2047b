package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vipgate.org/core/gateway/db"
	"vipgate.org/core/gateway/queue"
	"vipgate.org/core/partner"
	"vipgate.org/core/telegram"
)

// Ingest dispatches one transport update. Join requests get the UID
// instructions; private messages run the verification decision.
func (g *Gateway) Ingest(ctx context.Context, update telegram.Update) error {
	switch {
	case update.ChatJoinRequest != nil:
		return g.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.Message != nil:
		return g.handleMessage(ctx, update.Message)
	}
	return nil
}

func (g *Gateway) handleJoinRequest(ctx context.Context, jr *telegram.ChatJoinRequest) error {
	if jr.Chat.ID != g.cfg.Telegram.ChatID {
		return nil
	}
	g.l.Info("join request", "applicant", jr.From.ID, "name", jr.From.FirstName)
	return g.transport.SendMessage(ctx, jr.From.ID, instructionNotice(g.cfg.Telegram.GroupName))
}

func (g *Gateway) handleMessage(ctx context.Context, m *telegram.Message) error {
	if m.Chat.Type != "private" || m.From == nil {
		return nil
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}

	switch text {
	case "/start":
		return g.transport.SendMessage(ctx, m.Chat.ID, startNotice(g.cfg.Telegram.GroupName))
	case "/report":
		if !g.cfg.Telegram.IsAdmin(m.From.ID) {
			return nil
		}
		g.queue.Enqueue(queue.Job{Name: "manual-report", Run: g.reporter.RunWeekly})
		return g.transport.SendMessage(ctx, m.Chat.ID, noticeReportQueued)
	}

	return g.verify(ctx, *m.From, text)
}

// verify is the decision procedure, re-derived fresh from every message;
// there is no pending state. An applicant retries simply by sending
// another message.
func (g *Gateway) verify(ctx context.Context, from telegram.User, text string) error {
	l := g.l.With("applicant", from.ID)

	if text == g.cfg.Telegram.BypassToken {
		// bypassed members are deliberately never persisted, so they
		// stay invisible to reports
		g.recordAttempt(from.ID, "", db.AttemptBypass)
		if err := g.transport.ApproveJoinRequest(ctx, g.cfg.Telegram.ChatID, from.ID); err != nil {
			return fmt.Errorf("approving join request: %w", err)
		}
		g.welcome(ctx, from)
		l.Info("applicant admitted via bypass token")
		return nil
	}

	if !isNumeric(text) {
		g.recordAttempt(from.ID, text, db.AttemptRejectedFormat)
		return g.transport.SendMessage(ctx, from.ID, noticeNumericOnly)
	}

	if _, err := g.partner.InviteeDetail(ctx, text); err != nil {
		// a partner outage and an explicit rejection read the same to
		// the applicant
		if !errors.Is(err, partner.ErrNotReferral) {
			l.Warn("partner lookup failed", "err", err)
		}
		g.recordAttempt(from.ID, text, db.AttemptRejectedPartner)
		return g.transport.SendMessage(ctx, from.ID, noticeNotReferral)
	}

	if err := g.db.UpsertMember(from.ID, text, time.Now().UTC()); err != nil {
		// never approve without a durable record
		l.Error("failed to persist member", "err", err)
		g.recordAttempt(from.ID, text, db.AttemptError)
		return g.transport.SendMessage(ctx, from.ID, noticeStoreFailure)
	}
	g.recordAttempt(from.ID, text, db.AttemptApproved)

	// from here on nothing is rolled back; a failed approval or notice
	// leaves a verified-but-unconfirmed member, resolved by admin retry
	if err := g.transport.ApproveJoinRequest(ctx, g.cfg.Telegram.ChatID, from.ID); err != nil {
		l.Error("failed to approve join request", "err", err)
	}
	if err := g.transport.SendMessage(ctx, from.ID, noticeVerified); err != nil {
		l.Error("failed to send verified notice", "err", err)
	}
	g.welcome(ctx, from)

	l.Info("applicant verified", "uid", text)
	return nil
}

func (g *Gateway) welcome(ctx context.Context, from telegram.User) {
	text := welcomeNotice(g.cfg.Telegram.GroupName, telegram.Mention(from.ID, from.FirstName))
	if err := g.transport.SendMessageHTML(ctx, g.cfg.Telegram.ChatID, text); err != nil {
		g.l.Error("failed to send welcome notice", "applicant", from.ID, "err", err)
	}
}

// recordAttempt appends to the audit trail; failures are logged only, the
// trail never gates a decision.
func (g *Gateway) recordAttempt(chatID int64, input, result string) {
	if err := g.db.RecordAttempt(chatID, input, result); err != nil {
		g.l.Error("failed to record attempt", "err", err)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
