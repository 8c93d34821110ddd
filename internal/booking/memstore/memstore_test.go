package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestApplyUpdate_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	job := &domain.Job{UserID: 1, Status: domain.StatusPending, Due: now.Add(48 * time.Hour)}
	require.NoError(t, s.CreateJob(ctx, job))
	assert.Equal(t, int64(1), job.ID)

	accepted := *job
	accepted.Status = domain.StatusAssigned
	err := s.ApplyUpdate(ctx, domain.JobUpdate{
		Job:            &accepted,
		ExpectedStatus: domain.StatusPending,
		NewAssignment:  &domain.Assignment{UserID: 7, CreatedAt: now},
		At:             now,
	})
	require.NoError(t, err)

	again := *job
	again.Status = domain.StatusAssigned
	err = s.ApplyUpdate(ctx, domain.JobUpdate{
		Job:            &again,
		ExpectedStatus: domain.StatusPending,
		NewAssignment:  &domain.Assignment{UserID: 8, CreatedAt: now},
		At:             now,
	})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	assignments, err := s.Assignments(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, int64(7), assignments[0].UserID)
}

func TestApplyUpdate_StaleCopyIsRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	job := &domain.Job{UserID: 1, Status: domain.StatusPending, Due: now.Add(72 * time.Hour)}
	require.NoError(t, s.CreateJob(ctx, job))

	stale, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)

	edited, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	edited.Due = edited.Due.Add(24 * time.Hour)
	require.NoError(t, s.ApplyUpdate(ctx, domain.JobUpdate{Job: edited, ExpectedStatus: domain.StatusPending, At: now}))
	assert.Equal(t, int64(1), edited.Version)

	stale.Status = domain.StatusAssigned
	err = s.ApplyUpdate(ctx, domain.JobUpdate{
		Job:            stale,
		ExpectedStatus: domain.StatusPending,
		NewAssignment:  &domain.Assignment{UserID: 7, CreatedAt: now},
		At:             now,
	})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	stored, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(96*time.Hour), stored.Due)
	assert.Equal(t, domain.StatusPending, stored.Status)

	assignments, err := s.Assignments(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestApplyUpdate_OneActiveAssignment(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.PutJob(domain.Job{ID: 4, UserID: 1, Status: domain.StatusPending, Due: now.Add(72 * time.Hour)})
	s.PutAssignment(domain.Assignment{JobID: 4, UserID: 7, CreatedAt: now})

	job, err := s.GetJob(ctx, 4)
	require.NoError(t, err)
	job.Status = domain.StatusAssigned

	err = s.ApplyUpdate(ctx, domain.JobUpdate{
		Job:            job,
		ExpectedStatus: domain.StatusPending,
		NewAssignment:  &domain.Assignment{UserID: 8, CreatedAt: now},
		At:             now,
	})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	stored, err := s.GetJob(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, int64(0), stored.Version)

	assignments, err := s.Assignments(ctx, 4)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, int64(7), assignments[0].UserID)
}

func TestApplyUpdate_AssignmentMutations(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.PutJob(domain.Job{ID: 3, UserID: 1, Status: domain.StatusAssigned, Due: now.Add(72 * time.Hour)})
	first := s.PutAssignment(domain.Assignment{JobID: 3, UserID: 7, CreatedAt: now})

	job, err := s.GetJob(ctx, 3)
	require.NoError(t, err)

	t.Run("soft cancel and replace", func(t *testing.T) {
		err := s.ApplyUpdate(ctx, domain.JobUpdate{
			Job:                job,
			CancelAssignmentID: first.ID,
			NewAssignment:      &domain.Assignment{UserID: 9, CreatedAt: now},
			At:                 now,
		})
		require.NoError(t, err)

		assignments, _ := s.Assignments(ctx, 3)
		require.Len(t, assignments, 2)
		assert.NotNil(t, assignments[0].CancelAt)
		active := domain.ActiveAssignment(assignments)
		require.NotNil(t, active)
		assert.Equal(t, int64(9), active.UserID)
	})

	t.Run("hard delete removes only the active row", func(t *testing.T) {
		err := s.ApplyUpdate(ctx, domain.JobUpdate{Job: job, DeleteAssignmentUser: 9, At: now})
		require.NoError(t, err)

		assignments, _ := s.Assignments(ctx, 3)
		require.Len(t, assignments, 1)
		assert.Equal(t, int64(7), assignments[0].UserID)
		assert.Nil(t, domain.ActiveAssignment(assignments))
	})
}

func TestHasOverlappingAssignment(t *testing.T) {
	ctx := context.Background()
	s := New()
	due := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	s.PutJob(domain.Job{ID: 1, Status: domain.StatusAssigned, Due: due, Duration: 60})
	s.PutAssignment(domain.Assignment{JobID: 1, UserID: 7})

	busy, err := s.HasOverlappingAssignment(ctx, 7, due.Add(30*time.Minute), 2)
	require.NoError(t, err)
	assert.True(t, busy)

	busy, err = s.HasOverlappingAssignment(ctx, 7, due.Add(61*time.Minute), 2)
	require.NoError(t, err)
	assert.False(t, busy)

	busy, err = s.HasOverlappingAssignment(ctx, 7, due, 1)
	require.NoError(t, err)
	assert.False(t, busy, "the job itself is excluded")

	busy, err = s.HasOverlappingAssignment(ctx, 8, due, 2)
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestListJobHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 20; i++ {
		s.PutJob(domain.Job{ID: i, UserID: 1, Status: domain.StatusCompleted, Due: base.Add(time.Duration(i) * time.Hour)})
	}
	s.PutJob(domain.Job{ID: 21, UserID: 1, Status: domain.StatusPending, Due: base})

	page1, total, err := s.ListJobHistory(ctx, 1, domain.RoleCustomer, 1, 15)
	require.NoError(t, err)
	assert.Equal(t, 20, total)
	require.Len(t, page1, 15)
	assert.Equal(t, int64(20), page1[0].ID)

	page2, _, err := s.ListJobHistory(ctx, 1, domain.RoleCustomer, 2, 15)
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	empty, _, err := s.ListJobHistory(ctx, 1, domain.RoleCustomer, 3, 15)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserDirectory(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.AddUser(domain.User{ID: 2, Email: "Anna@Example.com", Role: domain.RoleTranslator, Active: true},
		&domain.UserProfile{City: "Stockholm", Languages: []int{5}})
	s.AddUser(domain.User{ID: 3, Role: domain.RoleTranslator, Active: false}, nil)
	s.AddUser(domain.User{ID: 1, Role: domain.RoleCustomer, Active: true}, nil)
	s.Block(1, 2)

	u, err := s.FindByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.ID)

	_, err = s.FindByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := s.GetProfile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.UserID)

	active, err := s.ActiveTranslators(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].ID)

	bl, err := s.GetBlacklist(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, bl)
}
