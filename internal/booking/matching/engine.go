// Package matching decides which translators may be alerted about a pending booking.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// Engine evaluates translator eligibility against bookings
type Engine struct {
	users domain.UserDirectory
	jobs  domain.JobStore
}

// NewEngine creates a new matching engine
func NewEngine(users domain.UserDirectory, jobs domain.JobStore) *Engine {
	return &Engine{users: users, jobs: jobs}
}

// Owner is what eligibility needs to know about a booking's customer
type Owner struct {
	city      string
	blacklist map[int64]struct{}
}

// Qualifies applies the checks that need no store access: job type, language,
// gender, certification level, blacklist and town.
func Qualifies(job *domain.Job, cand domain.Candidate, ownerCity string, blacklisted bool) bool {
	p := cand.Profile

	if JobTypeFor(p.TranslatorType) != job.JobType {
		return false
	}
	if !p.SpeaksLanguage(job.FromLanguageID) {
		return false
	}
	if job.Gender != domain.GenderNone && p.Gender != job.Gender {
		return false
	}
	if !levelAllowed(p.TranslatorLevel, job.Certified) {
		return false
	}
	if blacklisted {
		return false
	}
	if job.RequiresTownMatch() && !domain.SameTown(ownerCity, p.City) {
		return false
	}
	return true
}

// CanAccept reports whether the translator is free at the booking's due time
func (e *Engine) CanAccept(ctx context.Context, translatorID int64, job *domain.Job) (bool, error) {
	busy, err := e.jobs.HasOverlappingAssignment(ctx, translatorID, job.Due, job.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check translator availability: %w", err)
	}
	return !busy, nil
}

// FindEligible returns the candidates that may be alerted about job, in pool order
func (e *Engine) FindEligible(ctx context.Context, job *domain.Job, pool []domain.Candidate) ([]domain.Candidate, error) {
	owner, err := e.LoadOwner(ctx, job.UserID)
	if err != nil {
		return nil, err
	}

	var eligible []domain.Candidate
	for _, cand := range pool {
		ok, err := e.Eligible(ctx, job, cand, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, cand)
		}
	}
	return eligible, nil
}

// FindPotentialJobsFor returns the pending jobs the candidate could be offered
func (e *Engine) FindPotentialJobsFor(ctx context.Context, cand domain.Candidate, jobs []domain.Job) ([]domain.Job, error) {
	owners := make(map[int64]Owner)

	var potential []domain.Job
	for i := range jobs {
		job := &jobs[i]
		if job.Status != domain.StatusPending {
			continue
		}

		owner, ok := owners[job.UserID]
		if !ok {
			var err error
			owner, err = e.LoadOwner(ctx, job.UserID)
			if err != nil {
				return nil, err
			}
			owners[job.UserID] = owner
		}

		match, err := e.Eligible(ctx, job, cand, owner)
		if err != nil {
			return nil, err
		}
		if match {
			potential = append(potential, *job)
		}
	}
	return potential, nil
}

// Eligible reports whether cand may be offered job. A job pinned to one
// translator is offered to nobody else, and to them only while they are free.
func (e *Engine) Eligible(ctx context.Context, job *domain.Job, cand domain.Candidate, owner Owner) (bool, error) {
	_, blacklisted := owner.blacklist[cand.User.ID]
	if !Qualifies(job, cand, owner.city, blacklisted) {
		return false, nil
	}

	if job.PinnedTranslatorID == nil {
		return true, nil
	}
	if *job.PinnedTranslatorID != cand.User.ID {
		return false, nil
	}
	return e.CanAccept(ctx, cand.User.ID, job)
}

// LoadOwner reads the customer's city and blacklist once for a batch of checks
func (e *Engine) LoadOwner(ctx context.Context, customerID int64) (Owner, error) {
	owner := Owner{blacklist: make(map[int64]struct{})}

	profile, err := e.users.GetProfile(ctx, customerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return owner, fmt.Errorf("failed to load customer profile %d: %w", customerID, err)
	}
	if profile != nil {
		owner.city = profile.City
	}

	blacklist, err := e.users.GetBlacklist(ctx, customerID)
	if err != nil {
		return owner, fmt.Errorf("failed to load blacklist for customer %d: %w", customerID, err)
	}
	for _, id := range blacklist {
		owner.blacklist[id] = struct{}{}
	}
	return owner, nil
}
