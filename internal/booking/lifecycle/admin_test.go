package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestReopen_InPlace(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusAssigned, baseTime.Add(48*time.Hour))
	f.assign(1, translatorA)

	result, err := f.m.Reopen(context.Background(), 1, adminID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.JobID)
	assert.False(t, result.Created)

	job := f.job(t, 1)
	assert.Equal(t, domain.StatusPending, job.Status)
	assert.Equal(t, baseTime, job.CreatedAt)
	assert.Equal(t, baseTime.Add(16*time.Hour), job.WillExpireAt)

	assignments := f.assignments(t, 1)
	require.Len(t, assignments, 2)
	assert.Nil(t, domain.ActiveAssignment(assignments))
	assert.Equal(t, adminID, assignments[1].UserID)
	assert.NotNil(t, assignments[1].CancelAt)

	assert.ElementsMatch(t, []int64{translatorA, translatorB}, result.Notified.Immediate)
}

func TestReopen_TimedOutCreatesCopy(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusTimedOut, baseTime.Add(48*time.Hour))

	result, err := f.m.Reopen(context.Background(), 1, adminID)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, int64(2), result.JobID)

	original := f.job(t, 1)
	assert.Equal(t, domain.StatusTimedOut, original.Status)
	require.NotNil(t, original.CancelAt)

	copied := f.job(t, 2)
	assert.Equal(t, domain.StatusPending, copied.Status)
	assert.Equal(t, "This booking is a reopening of booking #1", copied.AdminComments)
	assert.Equal(t, original.Due, copied.Due)
	assert.Nil(t, copied.CancelAt)

	pushes := f.outbox.Pushes()
	require.NotEmpty(t, pushes)
	assert.Equal(t, int64(2), pushes[0].JobID)
}

func TestReopen_TerminalIsRefused(t *testing.T) {
	for _, status := range []domain.Status{
		domain.StatusCompleted,
		domain.StatusWithdrawnBefore24,
		domain.StatusWithdrawnAfter24,
		domain.StatusNotCarriedOutCustomer,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.seedJob(1, status, baseTime.Add(48*time.Hour))
			f.assign(1, translatorA)

			_, err := f.m.Reopen(context.Background(), 1, adminID)
			assert.ErrorIs(t, err, domain.ErrTransitionNoOp)

			assert.Equal(t, status, f.job(t, 1).Status)
			assert.Len(t, f.assignments(t, 1), 1)
			assert.Empty(t, f.outbox.Pushes())
		})
	}
}

func TestReopen_Stranger(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusTimedOut, baseTime.Add(48*time.Hour))

	_, err := f.m.Reopen(context.Background(), 1, translatorA)
	assert.ErrorIs(t, err, domain.ErrRole)
}

func TestResendNotifications(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

	summary, err := f.m.ResendNotifications(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total())

	count, err := f.m.ResendSMSNotifications(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sms := f.outbox.SMS()
	require.Len(t, sms, 2)
	assert.Contains(t, sms[0].Message, "telefontolkning")
	assert.Contains(t, sms[0].Message, "#1")

	_, err = f.m.ResendNotifications(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotifyByAdminCancelJob_UsesCustomerTown(t *testing.T) {
	f := newFixture(t)
	job := f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))
	job.Town = "Malmö"
	f.store.PutJob(job)

	_, err := f.m.NotifyByAdminCancelJob(context.Background(), 1)
	require.NoError(t, err)

	pushes := f.outbox.Pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, "Stockholm", pushes[0].Payload["customer_town"])
}

func TestUpdateDistanceFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("records feed", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusCompleted, baseTime.Add(-time.Hour))

		err := f.m.UpdateDistanceFeed(ctx, domain.DistanceFeed{JobID: 1, Distance: "12", Time: "30", ManuallyHandled: true})
		require.NoError(t, err)

		feed, ok := f.store.Distance(1)
		require.True(t, ok)
		assert.Equal(t, "12", feed.Distance)
		assert.True(t, f.job(t, 1).ManuallyHandled)
	})

	t.Run("flag requires a comment", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusCompleted, baseTime.Add(-time.Hour))

		err := f.m.UpdateDistanceFeed(ctx, domain.DistanceFeed{JobID: 1, Flagged: true})
		var precondition *domain.PreconditionError
		require.ErrorAs(t, err, &precondition)
		assert.Equal(t, "Please, add comment", precondition.UserMessage())
		_, ok := f.store.Distance(1)
		assert.False(t, ok)
	})

	t.Run("unknown job", func(t *testing.T) {
		f := newFixture(t)
		err := f.m.UpdateDistanceFeed(ctx, domain.DistanceFeed{JobID: 5})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
