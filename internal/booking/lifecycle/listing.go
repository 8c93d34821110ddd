package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// Buckets splits a job list into immediate and scheduled bookings
type Buckets struct {
	Emergency []domain.Job `json:"emergency_jobs"`
	Normal    []domain.Job `json:"normal_jobs"`
}

// ClassifyJobs buckets jobs by urgency. Normal jobs are ordered by due time;
// emergency jobs keep their input order.
func ClassifyJobs(jobs []domain.Job) Buckets {
	b := Buckets{Emergency: []domain.Job{}, Normal: []domain.Job{}}
	for _, j := range jobs {
		if j.Immediate {
			b.Emergency = append(b.Emergency, j)
		} else {
			b.Normal = append(b.Normal, j)
		}
	}
	sort.SliceStable(b.Normal, func(i, k int) bool {
		return b.Normal[i].Due.Before(b.Normal[k].Due)
	})
	return b
}

// UserJobs is a user's current bookings
type UserJobs struct {
	Buckets
	Role domain.Role `json:"user_type"`
	// CanAccept is only filled for translators, keyed by job id
	CanAccept map[int64]bool `json:"can_accept,omitempty"`
}

// ListUserJobs returns the pending, assigned and started bookings a user is part of
func (m *Manager) ListUserJobs(ctx context.Context, userID int64) (*UserJobs, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	var jobs []domain.Job
	switch {
	case user.Is(domain.RoleCustomer):
		jobs, err = m.jobs.ListCustomerJobs(ctx, userID, domain.ActiveStatuses)
	case user.Is(domain.RoleTranslator):
		jobs, err = m.jobs.ListTranslatorJobs(ctx, userID, domain.ActiveStatuses)
	default:
		return nil, domain.ErrRole
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for user %d: %w", userID, err)
	}

	out := &UserJobs{Buckets: ClassifyJobs(jobs), Role: user.Role}
	if user.Is(domain.RoleTranslator) {
		out.CanAccept = make(map[int64]bool, len(out.Normal))
		for i := range out.Normal {
			ok, err := m.engine.CanAccept(ctx, userID, &out.Normal[i])
			if err != nil {
				return nil, err
			}
			out.CanAccept[out.Normal[i].ID] = ok
		}
	}
	return out, nil
}

// History is one page of a user's finished bookings
type History struct {
	Jobs     []domain.Job `json:"jobs"`
	Role     domain.Role  `json:"user_type"`
	Page     int          `json:"page"`
	Total    int          `json:"total"`
	NumPages int          `json:"num_pages"`
}

// ListUserJobHistory returns a page of completed, withdrawn and timed out bookings, newest first
func (m *Manager) ListUserJobHistory(ctx context.Context, userID int64, page int) (*History, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if !user.Is(domain.RoleCustomer) && !user.Is(domain.RoleTranslator) {
		return nil, domain.ErrRole
	}
	if page < 1 {
		page = 1
	}

	size := m.config.HistoryPageSize
	jobs, total, err := m.jobs.ListJobHistory(ctx, userID, user.Role, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for user %d: %w", userID, err)
	}

	return &History{
		Jobs:     jobs,
		Role:     user.Role,
		Page:     page,
		Total:    total,
		NumPages: (total + size - 1) / size,
	}, nil
}

// GetPotentialJobs lists the pending jobs a translator may take
func (m *Manager) GetPotentialJobs(ctx context.Context, translatorID int64) ([]domain.Job, error) {
	user, err := m.users.FindByID(ctx, translatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translator %d: %w", translatorID, err)
	}
	if !user.Is(domain.RoleTranslator) {
		return nil, domain.ErrRole
	}
	profile, err := m.users.GetProfile(ctx, translatorID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Job{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", translatorID, err)
	}

	pending, err := m.jobs.ListPendingJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return m.engine.FindPotentialJobsFor(ctx, domain.Candidate{User: *user, Profile: *profile}, pending)
}
