package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func strPtr(s string) *string { return &s }

func TestApplyTransition(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)

	tests := []struct {
		name              string
		from              domain.Status
		cs                ChangeSet
		translatorChanged bool
		wantStatus        domain.Status
		wantNotices       []notice
	}{
		{
			name:        "timedout reopened to pending",
			from:        domain.StatusTimedOut,
			cs:          ChangeSet{Status: domain.StatusPending},
			wantStatus:  domain.StatusPending,
			wantNotices: []notice{noticeReopened},
		},
		{
			name:       "timedout to assigned needs a translator",
			from:       domain.StatusTimedOut,
			cs:         ChangeSet{Status: domain.StatusAssigned},
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:              "timedout with new translator",
			from:              domain.StatusTimedOut,
			cs:                ChangeSet{Status: domain.StatusAssigned},
			translatorChanged: true,
			wantStatus:        domain.StatusAssigned,
			wantNotices:       []notice{noticeAccepted},
		},
		{
			name:       "completed to timedout without comment",
			from:       domain.StatusCompleted,
			cs:         ChangeSet{Status: domain.StatusTimedOut},
			wantStatus: domain.StatusCompleted,
		},
		{
			name:       "completed to timedout with comment",
			from:       domain.StatusCompleted,
			cs:         ChangeSet{Status: domain.StatusTimedOut, AdminComments: strPtr("no show")},
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:       "completed to withdrawn needs no comment",
			from:       domain.StatusCompleted,
			cs:         ChangeSet{Status: domain.StatusWithdrawnBefore24},
			wantStatus: domain.StatusWithdrawnBefore24,
		},
		{
			name:       "completed back to pending is refused",
			from:       domain.StatusCompleted,
			cs:         ChangeSet{Status: domain.StatusPending, AdminComments: strPtr("x")},
			wantStatus: domain.StatusCompleted,
		},
		{
			name:       "started requires a comment",
			from:       domain.StatusStarted,
			cs:         ChangeSet{Status: domain.StatusCompleted, SessionTime: "1:30"},
			wantStatus: domain.StatusStarted,
		},
		{
			name:       "started to completed requires a session time",
			from:       domain.StatusStarted,
			cs:         ChangeSet{Status: domain.StatusCompleted, AdminComments: strPtr("done")},
			wantStatus: domain.StatusStarted,
		},
		{
			name:       "started to completed rejects a malformed session time",
			from:       domain.StatusStarted,
			cs:         ChangeSet{Status: domain.StatusCompleted, AdminComments: strPtr("done"), SessionTime: "90"},
			wantStatus: domain.StatusStarted,
		},
		{
			name:        "started to completed",
			from:        domain.StatusStarted,
			cs:          ChangeSet{Status: domain.StatusCompleted, AdminComments: strPtr("done"), SessionTime: "1:30"},
			wantStatus:  domain.StatusCompleted,
			wantNotices: []notice{noticeSessionEnded},
		},
		{
			name:       "started to timedout with comment",
			from:       domain.StatusStarted,
			cs:         ChangeSet{Status: domain.StatusTimedOut, AdminComments: strPtr("late")},
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:       "pending to assigned without translator",
			from:       domain.StatusPending,
			cs:         ChangeSet{Status: domain.StatusAssigned},
			wantStatus: domain.StatusPending,
		},
		{
			name:              "pending to assigned with translator",
			from:              domain.StatusPending,
			cs:                ChangeSet{Status: domain.StatusAssigned},
			translatorChanged: true,
			wantStatus:        domain.StatusAssigned,
			wantNotices:       []notice{noticeAssigned},
		},
		{
			name:       "pending to timedout without comment",
			from:       domain.StatusPending,
			cs:         ChangeSet{Status: domain.StatusTimedOut},
			wantStatus: domain.StatusPending,
		},
		{
			name:        "pending withdrawn",
			from:        domain.StatusPending,
			cs:          ChangeSet{Status: domain.StatusWithdrawnBefore24},
			wantStatus:  domain.StatusWithdrawnBefore24,
			wantNotices: []notice{noticeCustomerCancelled},
		},
		{
			name:       "withdrawn after 24 to timedout with comment",
			from:       domain.StatusWithdrawnAfter24,
			cs:         ChangeSet{Status: domain.StatusTimedOut, AdminComments: strPtr("ok")},
			wantStatus: domain.StatusTimedOut,
		},
		{
			name:       "withdrawn after 24 to timedout without comment",
			from:       domain.StatusWithdrawnAfter24,
			cs:         ChangeSet{Status: domain.StatusTimedOut},
			wantStatus: domain.StatusWithdrawnAfter24,
		},
		{
			name:       "withdrawn after 24 to pending",
			from:       domain.StatusWithdrawnAfter24,
			cs:         ChangeSet{Status: domain.StatusPending, AdminComments: strPtr("ok")},
			wantStatus: domain.StatusWithdrawnAfter24,
		},
		{
			name:        "assigned withdrawn notifies both parties",
			from:        domain.StatusAssigned,
			cs:          ChangeSet{Status: domain.StatusWithdrawnAfter24},
			wantStatus:  domain.StatusWithdrawnAfter24,
			wantNotices: []notice{noticeCustomerCancelled, noticeTranslatorCancelled},
		},
		{
			name:       "assigned to timedout without comment",
			from:       domain.StatusAssigned,
			cs:         ChangeSet{Status: domain.StatusTimedOut},
			wantStatus: domain.StatusAssigned,
		},
		{
			name:       "assigned to started is not an admin transition",
			from:       domain.StatusAssigned,
			cs:         ChangeSet{Status: domain.StatusStarted, AdminComments: strPtr("x")},
			wantStatus: domain.StatusAssigned,
		},
		{
			name:       "same status",
			from:       domain.StatusAssigned,
			cs:         ChangeSet{Status: domain.StatusAssigned, AdminComments: strPtr("x")},
			wantStatus: domain.StatusAssigned,
		},
		{
			name:       "no handler for not carried out",
			from:       domain.StatusNotCarriedOutCustomer,
			cs:         ChangeSet{Status: domain.StatusPending, AdminComments: strPtr("x")},
			wantStatus: domain.StatusNotCarriedOutCustomer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := domain.Job{ID: 1, Status: tt.from, Due: due, CreatedAt: now.Add(-time.Hour), EmailSent: true}

			got, tr := applyTransition(job, tt.cs, transitionInput{now: now, translatorChanged: tt.translatorChanged})

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantStatus != tt.from, tr.changed)
			assert.Equal(t, tt.wantNotices, tr.notices)
			if !tr.changed {
				assert.Equal(t, job, got)
			}
		})
	}
}

func TestApplyTransition_Effects(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("reopen resets creation and email flags", func(t *testing.T) {
		job := domain.Job{Status: domain.StatusTimedOut, Due: now.Add(48 * time.Hour), CreatedAt: now.Add(-72 * time.Hour), EmailSent: true, EmailSentToVirpal: true}

		got, _ := applyTransition(job, ChangeSet{Status: domain.StatusPending}, transitionInput{now: now})

		assert.Equal(t, now, got.CreatedAt)
		assert.False(t, got.EmailSent)
		assert.False(t, got.EmailSentToVirpal)
		assert.Equal(t, now.Add(16*time.Hour), got.WillExpireAt)
	})

	t.Run("completing a session records end and length", func(t *testing.T) {
		job := domain.Job{Status: domain.StatusStarted}

		got, _ := applyTransition(job, ChangeSet{Status: domain.StatusCompleted, AdminComments: strPtr(" done "), SessionTime: "1:30"}, transitionInput{now: now})

		assert.Equal(t, "1:30", got.SessionTime)
		assert.Equal(t, "done", got.AdminComments)
		if assert.NotNil(t, got.EndAt) {
			assert.Equal(t, now, *got.EndAt)
		}
	})
}
