package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestEndJob(t *testing.T) {
	tests := []struct {
		name      string
		actor     int64
		wantOther int64
	}{
		{name: "ended by customer", actor: customerID, wantOther: translatorA},
		{name: "ended by translator", actor: translatorA, wantOther: customerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedJob(1, domain.StatusStarted, baseTime.Add(-95*time.Minute))
			assignment := f.assign(1, translatorA)

			result, err := f.m.EndJob(context.Background(), 1, tt.actor)
			require.NoError(t, err)

			assert.True(t, result.Changed)
			assert.Equal(t, "1:35", result.Elapsed)

			job := f.job(t, 1)
			assert.Equal(t, domain.StatusCompleted, job.Status)
			assert.Equal(t, "1:35", job.SessionTime)
			require.NotNil(t, job.EndAt)

			var completed *domain.Assignment
			for _, a := range f.assignments(t, 1) {
				a := a
				if a.ID == assignment.ID {
					completed = &a
				}
			}
			require.NotNil(t, completed)
			require.NotNil(t, completed.CompletedAt)
			require.NotNil(t, completed.CompletedBy)
			assert.Equal(t, tt.actor, *completed.CompletedBy)

			emails := f.outbox.EmailsByTemplate(TemplateSessionEnded)
			require.Len(t, emails, 2)

			events := f.outbox.Events()
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventSessionEnded, events[0].Name)
			assert.Equal(t, tt.wantOther, events[0].Payload["user_id"])
		})
	}
}

func TestEndJob_NotStarted(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusAssigned, baseTime.Add(time.Hour))
	f.assign(1, translatorA)

	result, err := f.m.EndJob(context.Background(), 1, customerID)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, domain.StatusAssigned, f.job(t, 1).Status)
	assert.Empty(t, f.outbox.Emails())
	assert.Empty(t, f.outbox.Events())
}

func TestEndJob_Stranger(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusStarted, baseTime.Add(-time.Hour))
	f.assign(1, translatorA)

	_, err := f.m.EndJob(context.Background(), 1, translatorB)
	assert.ErrorIs(t, err, domain.ErrRole)
	assert.Equal(t, domain.StatusStarted, f.job(t, 1).Status)
}

func TestCustomerNotCall(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusAssigned, baseTime.Add(-20*time.Minute))
	f.assign(1, translatorA)

	result, err := f.m.CustomerNotCall(context.Background(), 1, translatorA)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, "0h 20m", result.Elapsed)

	job := f.job(t, 1)
	assert.Equal(t, domain.StatusNotCarriedOutCustomer, job.Status)
	require.NotNil(t, job.EndAt)
	assert.Nil(t, domain.ActiveAssignment(f.assignments(t, 1)))

	emails := f.outbox.EmailsByTemplate(TemplateSessionEnded)
	require.Len(t, emails, 2)
	for _, e := range emails {
		assert.Equal(t, true, e.Data["not_carried_out"])
	}

	_, err = f.m.CustomerNotCall(context.Background(), 1, translatorA)
	assert.ErrorIs(t, err, domain.ErrTransitionNoOp)
}
