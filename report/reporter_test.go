package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipgate.org/core/partner"
)

type fakeStore struct {
	uids []string
}

func (f *fakeStore) MemberUIDs() ([]string, error) { return f.uids, nil }
func (f *fakeStore) MemberCount() (int, error)     { return len(f.uids), nil }

type fakeLookup struct {
	volumes map[string]string // uid -> volMonth; missing uid fails
	calls   int
}

func (f *fakeLookup) CachedInviteeDetail(_ context.Context, uid string) (partner.InviteeDetail, error) {
	f.calls++
	vol, ok := f.volumes[uid]
	if !ok {
		return partner.InviteeDetail{}, errors.New("partner unavailable")
	}
	return partner.InviteeDetail{VolMonth: vol}, nil
}

type sent struct {
	chatID int64
	text   string
}

type recorder struct {
	sent    []sent
	failFor int64
}

func (r *recorder) SendMessage(_ context.Context, chatID int64, text string) error {
	if r.failFor != 0 && chatID == r.failFor {
		return errors.New("bot was blocked")
	}
	r.sent = append(r.sent, sent{chatID, text})
	return nil
}

func TestGeneratePartialFailures(t *testing.T) {
	store := &fakeStore{uids: []string{"111", "222", "333"}}
	lookup := &fakeLookup{volumes: map[string]string{
		"111": "1000.6",
		"333": "500",
		// 222 fails, contributes zero
	}}

	r := New(Config{Store: store, Lookup: lookup, Notifier: &recorder{}})

	text, err := r.Generate(context.Background(), WeeklyTitle)
	require.NoError(t, err)

	assert.Equal(t, 3, lookup.calls)
	assert.Contains(t, text, WeeklyTitle)
	assert.Contains(t, text, "Active members: 3")
	assert.Contains(t, text, "1,501 USDT")
}

func TestRunFansOutToAllAdmins(t *testing.T) {
	rec := &recorder{}
	r := New(Config{
		Store:    &fakeStore{uids: []string{"111"}},
		Lookup:   &fakeLookup{volumes: map[string]string{"111": "10"}},
		Notifier: rec,
		AdminIDs: []int64{1, 2, 3},
	})

	require.NoError(t, r.Run(context.Background(), WeeklyTitle))
	require.Len(t, rec.sent, 3)
	for i, admin := range []int64{1, 2, 3} {
		assert.Equal(t, admin, rec.sent[i].chatID)
	}
}

func TestRunSurvivesDeliveryFailure(t *testing.T) {
	rec := &recorder{failFor: 2}
	r := New(Config{
		Store:    &fakeStore{},
		Lookup:   &fakeLookup{},
		Notifier: rec,
		AdminIDs: []int64{1, 2, 3},
	})

	require.NoError(t, r.Run(context.Background(), WeeklyTitle))
	require.Len(t, rec.sent, 2)
}

func TestRunMonthlyGuard(t *testing.T) {
	zone := time.FixedZone("ART", -3*60*60)

	tests := []struct {
		name     string
		now      time.Time
		wantSent int
	}{
		{
			name:     "not the reporting day",
			now:      time.Date(2026, time.August, 29, 0, 5, 0, 0, zone),
			wantSent: 0,
		},
		{
			name:     "reporting day",
			now:      time.Date(2026, time.August, 30, 0, 5, 0, 0, zone),
			wantSent: 2,
		},
		{
			name:     "day differs across zones",
			now:      time.Date(2026, time.August, 30, 1, 0, 0, 0, time.UTC), // still the 29th in ART
			wantSent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r := New(Config{
				Store:      &fakeStore{uids: []string{"111"}},
				Lookup:     &fakeLookup{volumes: map[string]string{"111": "10"}},
				Notifier:   rec,
				AdminIDs:   []int64{1, 2},
				Zone:       zone,
				MonthlyDay: 30,
			})

			require.NoError(t, r.RunMonthly(context.Background(), tt.now))
			assert.Len(t, rec.sent, tt.wantSent)
		})
	}
}
