package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestCancelJob_TranslatorWindow(t *testing.T) {
	tests := []struct {
		name     string
		untilDue time.Duration
		wantErr  bool
	}{
		{name: "24h and 1 minute before due", untilDue: 24*time.Hour + time.Minute},
		{name: "exactly 24h before due", untilDue: 24 * time.Hour, wantErr: true},
		{name: "23h59m before due", untilDue: 23*time.Hour + 59*time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedJob(1, domain.StatusAssigned, baseTime.Add(tt.untilDue))
			f.assign(1, translatorA)

			job, err := f.m.CancelJob(context.Background(), 1, translatorA)

			if tt.wantErr {
				var precondition *domain.PreconditionError
				require.ErrorAs(t, err, &precondition)
				assert.Contains(t, precondition.UserMessage(), "+46 73 75 86 865")
				assert.Equal(t, domain.StatusAssigned, f.job(t, 1).Status)
				assert.Len(t, f.assignments(t, 1), 1)
				assert.Empty(t, f.outbox.Pushes())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, job.Status)
			assert.Equal(t, domain.StatusPending, f.job(t, 1).Status)
			assert.Empty(t, f.assignments(t, 1))
			assert.Equal(t, []int64{translatorB}, recipientIDs(f.outbox.Pushes(), domain.NotificationSuitableJob))
		})
	}
}

func TestCancelJob_Customer(t *testing.T) {
	tests := []struct {
		name       string
		untilDue   time.Duration
		wantStatus domain.Status
	}{
		{name: "a day or more ahead", untilDue: 24 * time.Hour, wantStatus: domain.StatusWithdrawnBefore24},
		{name: "less than a day ahead", untilDue: 3 * time.Hour, wantStatus: domain.StatusWithdrawnAfter24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedJob(1, domain.StatusAssigned, baseTime.Add(tt.untilDue))
			f.assign(1, translatorA)

			job, err := f.m.CancelJob(context.Background(), 1, customerID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, job.Status)
			stored := f.job(t, 1)
			assert.Equal(t, tt.wantStatus, stored.Status)
			require.NotNil(t, stored.WithdrawAt)
			assert.Equal(t, baseTime, *stored.WithdrawAt)

			events := f.outbox.Events()
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventJobWasCanceled, events[0].Name)
			assert.Equal(t, []int64{translatorA}, recipientIDs(f.outbox.Pushes(), domain.NotificationJobCancelled))
		})
	}
}

func TestCancelJob_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("translator not on the job", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusAssigned, baseTime.Add(72*time.Hour))
		f.assign(1, translatorA)

		_, err := f.m.CancelJob(ctx, 1, translatorB)
		assert.ErrorIs(t, err, domain.ErrRole)
	})

	t.Run("another customer", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddUser(domain.User{ID: 101, Role: domain.RoleCustomer, Active: true}, nil)
		f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

		_, err := f.m.CancelJob(ctx, 1, 101)
		assert.ErrorIs(t, err, domain.ErrRole)
	})

	t.Run("terminal status", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusCompleted, baseTime.Add(-time.Hour))

		_, err := f.m.CancelJob(ctx, 1, customerID)
		assert.ErrorIs(t, err, domain.ErrTransitionNoOp)
		assert.Empty(t, f.outbox.Events())
	})
}
