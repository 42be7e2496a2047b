package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipgate.org/core/gateway/config"
	"vipgate.org/core/gateway/db"
	"vipgate.org/core/gateway/queue"
	"vipgate.org/core/log"
	"vipgate.org/core/partner"
	"vipgate.org/core/telegram"
)

const (
	testChatID = int64(-100123)
	bypass     = "let-me-in"
)

type action struct {
	kind   string // "dm", "html", "approve"
	chatID int64
	text   string
}

type fakeTransport struct {
	actions []action
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string) error {
	f.actions = append(f.actions, action{"dm", chatID, text})
	return nil
}

func (f *fakeTransport) SendMessageHTML(_ context.Context, chatID int64, text string) error {
	f.actions = append(f.actions, action{"html", chatID, text})
	return nil
}

func (f *fakeTransport) ApproveJoinRequest(_ context.Context, chatID, userID int64) error {
	f.actions = append(f.actions, action{"approve", chatID, ""})
	return nil
}

func (f *fakeTransport) kinds() []string {
	var kinds []string
	for _, a := range f.actions {
		kinds = append(kinds, a.kind)
	}
	return kinds
}

type fakeVerifier struct {
	err   error
	calls []string
}

func (f *fakeVerifier) InviteeDetail(_ context.Context, uid string) (partner.InviteeDetail, error) {
	f.calls = append(f.calls, uid)
	if f.err != nil {
		return partner.InviteeDetail{}, f.err
	}
	return partner.InviteeDetail{VolMonth: "100"}, nil
}

func makeTestGateway(t *testing.T, verifier *fakeVerifier) (*Gateway, *fakeTransport, *db.DB) {
	t.Helper()

	d, err := db.Make(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	cfg := &config.Config{
		Telegram: config.Telegram{
			ChatID:      testChatID,
			AdminIDs:    []int64{42},
			BypassToken: bypass,
			GroupName:   "VIP",
		},
	}

	transport := &fakeTransport{}
	g := New(cfg, d, verifier, transport, queue.New(4, log.New("test")), nil, log.New("test"))
	return g, transport, d
}

func msg(userID int64, text string) telegram.Update {
	return telegram.Update{
		Message: &telegram.Message{
			From: &telegram.User{ID: userID, FirstName: "Ana"},
			Chat: telegram.Chat{ID: userID, Type: "private"},
			Text: text,
		},
	}
}

func TestJoinRequestSendsInstructions(t *testing.T) {
	g, transport, _ := makeTestGateway(t, &fakeVerifier{})

	err := g.Ingest(context.Background(), telegram.Update{
		ChatJoinRequest: &telegram.ChatJoinRequest{
			Chat: telegram.Chat{ID: testChatID},
			From: telegram.User{ID: 999, FirstName: "Ana"},
		},
	})
	require.NoError(t, err)

	require.Len(t, transport.actions, 1)
	assert.Equal(t, action{"dm", 999, instructionNotice("VIP")}, transport.actions[0])
}

func TestJoinRequestForOtherChatIgnored(t *testing.T) {
	g, transport, _ := makeTestGateway(t, &fakeVerifier{})

	err := g.Ingest(context.Background(), telegram.Update{
		ChatJoinRequest: &telegram.ChatJoinRequest{
			Chat: telegram.Chat{ID: -200999},
			From: telegram.User{ID: 999},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, transport.actions)
}

func TestVerifySuccess(t *testing.T) {
	verifier := &fakeVerifier{}
	g, transport, d := makeTestGateway(t, verifier)

	require.NoError(t, g.Ingest(context.Background(), msg(999, "12345")))

	assert.Equal(t, []string{"12345"}, verifier.calls)

	member, err := d.GetMember(999)
	require.NoError(t, err)
	assert.Equal(t, "12345", member.PartnerUID)

	// approval happens before the verified notice, which happens before
	// the group welcome
	require.Equal(t, []string{"approve", "dm", "html"}, transport.kinds())
	assert.Equal(t, testChatID, transport.actions[0].chatID)
	assert.Equal(t, noticeVerified, transport.actions[1].text)
	assert.Equal(t, testChatID, transport.actions[2].chatID)
	assert.Contains(t, transport.actions[2].text, `tg://user?id=999`)
}

func TestVerifyNonNumeric(t *testing.T) {
	tests := []string{"abc", "12a45", "12 45", "１２３", "-12345", "12.5"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			verifier := &fakeVerifier{}
			g, transport, d := makeTestGateway(t, verifier)

			require.NoError(t, g.Ingest(context.Background(), msg(999, input)))

			assert.Empty(t, verifier.calls, "non-numeric input must never reach the partner")
			require.Equal(t, []string{"dm"}, transport.kinds())
			assert.Equal(t, noticeNumericOnly, transport.actions[0].text)

			count, err := d.MemberCount()
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestVerifyPartnerRejection(t *testing.T) {
	for _, failure := range []error{partner.ErrNotReferral, errors.New("dial tcp: timeout")} {
		verifier := &fakeVerifier{err: failure}
		g, transport, d := makeTestGateway(t, verifier)

		require.NoError(t, g.Ingest(context.Background(), msg(999, "12345")))

		require.Equal(t, []string{"dm"}, transport.kinds())
		assert.Equal(t, noticeNotReferral, transport.actions[0].text)

		count, err := d.MemberCount()
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

func TestVerifyBypass(t *testing.T) {
	verifier := &fakeVerifier{}
	g, transport, d := makeTestGateway(t, verifier)

	require.NoError(t, g.Ingest(context.Background(), msg(999, bypass)))

	assert.Empty(t, verifier.calls, "bypass must not call the partner")

	count, err := d.MemberCount()
	require.NoError(t, err)
	assert.Zero(t, count, "bypassed members are never persisted")

	require.Equal(t, []string{"approve", "html"}, transport.kinds())
}

func TestVerifyStoreFailureDoesNotApprove(t *testing.T) {
	verifier := &fakeVerifier{}
	g, transport, d := makeTestGateway(t, verifier)
	require.NoError(t, d.Close())

	require.NoError(t, g.Ingest(context.Background(), msg(999, "12345")))

	require.Equal(t, []string{"dm"}, transport.kinds())
	assert.Equal(t, noticeStoreFailure, transport.actions[0].text)
}

func TestReverificationOverwrites(t *testing.T) {
	verifier := &fakeVerifier{}
	g, _, d := makeTestGateway(t, verifier)

	require.NoError(t, g.Ingest(context.Background(), msg(999, "12345")))
	require.NoError(t, g.Ingest(context.Background(), msg(999, "67890")))

	count, err := d.MemberCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	member, err := d.GetMember(999)
	require.NoError(t, err)
	assert.Equal(t, "67890", member.PartnerUID)
}

func TestGroupMessagesIgnored(t *testing.T) {
	verifier := &fakeVerifier{}
	g, transport, _ := makeTestGateway(t, verifier)

	update := telegram.Update{
		Message: &telegram.Message{
			From: &telegram.User{ID: 999},
			Chat: telegram.Chat{ID: testChatID, Type: "supergroup"},
			Text: "12345",
		},
	}
	require.NoError(t, g.Ingest(context.Background(), update))

	assert.Empty(t, verifier.calls)
	assert.Empty(t, transport.actions)
}

func TestStartCommand(t *testing.T) {
	g, transport, _ := makeTestGateway(t, &fakeVerifier{})

	require.NoError(t, g.Ingest(context.Background(), msg(999, "/start")))
	require.Equal(t, []string{"dm"}, transport.kinds())
	assert.Equal(t, startNotice("VIP"), transport.actions[0].text)
}

func TestReportCommandAdminOnly(t *testing.T) {
	g, transport, _ := makeTestGateway(t, &fakeVerifier{})

	// non-admins cannot trigger reports
	require.NoError(t, g.Ingest(context.Background(), msg(999, "/report")))
	assert.Empty(t, transport.actions)

	// the queue is not started, so the job stays queued
	require.NoError(t, g.Ingest(context.Background(), msg(42, "/report")))
	require.Equal(t, []string{"dm"}, transport.kinds())
	assert.Equal(t, noticeReportQueued, transport.actions[0].text)
}
