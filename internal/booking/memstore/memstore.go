// Package memstore is an in-process JobStore and UserDirectory. It backs the
// "memory" storage driver and the package tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

// Store keeps jobs, assignments and users in memory behind a single mutex
type Store struct {
	mu sync.Mutex

	jobs         map[int64]domain.Job
	assignments  []domain.Assignment
	distances    map[int64]domain.DistanceFeed
	nextJobID    int64
	nextAssignID int64

	users     map[int64]domain.User
	profiles  map[int64]domain.UserProfile
	blacklist map[int64][]int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		jobs:      make(map[int64]domain.Job),
		distances: make(map[int64]domain.DistanceFeed),
		users:     make(map[int64]domain.User),
		profiles:  make(map[int64]domain.UserProfile),
		blacklist: make(map[int64][]int64),
	}
}

// AddUser registers a user and, when given, their profile
func (s *Store) AddUser(u domain.User, profile *domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
	if profile != nil {
		p := *profile
		p.UserID = u.ID
		s.profiles[u.ID] = p
	}
}

// Block adds translators to a customer's blacklist
func (s *Store) Block(customerID int64, translatorIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[customerID] = append(s.blacklist[customerID], translatorIDs...)
}

// PutJob stores a job as-is, keeping its id; used to seed fixtures
func (s *Store) PutJob(job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID > s.nextJobID {
		s.nextJobID = job.ID
	}
	s.jobs[job.ID] = job
}

// PutAssignment stores an assignment, assigning an id when it has none
func (s *Store) PutAssignment(a domain.Assignment) domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		s.nextAssignID++
		a.ID = s.nextAssignID
	} else if a.ID > s.nextAssignID {
		s.nextAssignID = a.ID
	}
	s.assignments = append(s.assignments, a)
	return a
}

// Distance returns the last distance feed recorded for a job
func (s *Store) Distance(jobID int64) (domain.DistanceFeed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ok := s.distances[jobID]
	return feed, ok
}

func (s *Store) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextJobID++
	job.ID = s.nextJobID
	job.Version = 0
	s.jobs[job.ID] = *job
	return nil
}

func (s *Store) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (s *Store) ApplyUpdate(_ context.Context, u domain.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Job == nil {
		return domain.ErrInvalidInput
	}

	current, ok := s.jobs[u.Job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != u.Job.Version {
		return domain.ErrStatusConflict
	}
	if u.ExpectedStatus != "" && current.Status != u.ExpectedStatus {
		return domain.ErrStatusConflict
	}
	if u.NewAssignment != nil && u.NewAssignment.Active() && s.keepsActiveAssignment(u) {
		return domain.ErrStatusConflict
	}

	u.Job.Version++
	s.jobs[u.Job.ID] = *u.Job

	at := u.At
	for i := range s.assignments {
		a := &s.assignments[i]
		if a.JobID != u.Job.ID {
			continue
		}
		if u.CancelAssignmentID != 0 && a.ID == u.CancelAssignmentID {
			a.CancelAt = &at
		}
		if u.CompleteAssignmentID != 0 && a.ID == u.CompleteAssignmentID {
			by := u.CompletedBy
			a.CompletedAt = &at
			a.CompletedBy = &by
		}
	}

	if u.DeleteAssignmentUser != 0 {
		kept := s.assignments[:0]
		for _, a := range s.assignments {
			if a.JobID == u.Job.ID && a.UserID == u.DeleteAssignmentUser && a.Active() {
				continue
			}
			kept = append(kept, a)
		}
		s.assignments = kept
	}

	if u.NewAssignment != nil {
		s.nextAssignID++
		a := *u.NewAssignment
		a.ID = s.nextAssignID
		a.JobID = u.Job.ID
		s.assignments = append(s.assignments, a)
		u.NewAssignment.ID = a.ID
	}
	return nil
}

// keepsActiveAssignment reports whether an active assignment of the job
// survives the cancel, complete and delete steps of u. Lock must be held.
func (s *Store) keepsActiveAssignment(u domain.JobUpdate) bool {
	for _, a := range s.assignments {
		if a.JobID != u.Job.ID || !a.Active() {
			continue
		}
		if a.ID == u.CancelAssignmentID || a.ID == u.CompleteAssignmentID || (u.DeleteAssignmentUser != 0 && a.UserID == u.DeleteAssignmentUser) {
			continue
		}
		return true
	}
	return false
}

func (s *Store) Assignments(_ context.Context, jobID int64) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

// HasOverlappingAssignment reports whether the translator holds an active
// assignment on another live job whose session covers due.
func (s *Store) HasOverlappingAssignment(_ context.Context, translatorID int64, due time.Time, excludeJobID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.assignments {
		if a.UserID != translatorID || a.JobID == excludeJobID || !a.Active() {
			continue
		}
		job, ok := s.jobs[a.JobID]
		if !ok || job.Status.IsTerminal() {
			continue
		}
		end := job.Due.Add(time.Duration(job.Duration) * time.Minute)
		if !due.Before(job.Due) && (due.Before(end) || due.Equal(job.Due)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListPendingJobs(_ context.Context) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter(func(j domain.Job) bool { return j.Status == domain.StatusPending }, false), nil
}

func (s *Store) ListCustomerJobs(_ context.Context, customerID int64, statuses []domain.Status) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter(func(j domain.Job) bool {
		return j.UserID == customerID && hasStatus(statuses, j.Status)
	}, false), nil
}

func (s *Store) ListTranslatorJobs(_ context.Context, translatorID int64, statuses []domain.Status) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mine := s.translatorJobIDs(translatorID)
	return s.filter(func(j domain.Job) bool {
		_, ok := mine[j.ID]
		return ok && hasStatus(statuses, j.Status)
	}, false), nil
}

func (s *Store) ListJobHistory(_ context.Context, userID int64, role domain.Role, page, pageSize int) ([]domain.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match func(domain.Job) bool
	switch role {
	case domain.RoleCustomer:
		match = func(j domain.Job) bool {
			return j.UserID == userID && hasStatus(domain.HistoricStatuses, j.Status)
		}
	case domain.RoleTranslator:
		mine := s.translatorJobIDs(userID)
		match = func(j domain.Job) bool {
			_, ok := mine[j.ID]
			return ok && hasStatus(domain.HistoricStatuses, j.Status)
		}
	default:
		return nil, 0, nil
	}

	all := s.filter(match, true)
	total := len(all)

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.Job{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) UpdateDistance(_ context.Context, feed domain.DistanceFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[feed.JobID]
	if !ok {
		return domain.ErrNotFound
	}

	if feed.SessionTime != "" {
		job.SessionTime = feed.SessionTime
	}
	if feed.AdminComment != "" {
		job.AdminComments = feed.AdminComment
	}
	job.Flagged = feed.Flagged
	job.ManuallyHandled = feed.ManuallyHandled
	job.ByAdmin = feed.ByAdmin
	job.Version++
	s.jobs[job.ID] = job
	s.distances[feed.JobID] = feed
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) GetProfile(_ context.Context, userID int64) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Languages = append([]int(nil), p.Languages...)
	return &p, nil
}

func (s *Store) GetBlacklist(_ context.Context, customerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int64(nil), s.blacklist[customerID]...), nil
}

func (s *Store) ActiveTranslators(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.User
	for _, u := range s.users {
		if u.Role == domain.RoleTranslator && u.Active {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// translatorJobIDs collects jobs whose current assignment belongs to the translator
func (s *Store) translatorJobIDs(translatorID int64) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, a := range s.assignments {
		if a.UserID == translatorID && a.CancelAt == nil {
			ids[a.JobID] = struct{}{}
		}
	}
	return ids
}

// filter must be called with the lock held
func (s *Store) filter(match func(domain.Job) bool, newestFirst bool) []domain.Job {
	var out []domain.Job
	for _, j := range s.jobs {
		if match(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Due.Equal(out[b].Due) {
			if newestFirst {
				return out[a].ID > out[b].ID
			}
			return out[a].ID < out[b].ID
		}
		if newestFirst {
			return out[a].Due.After(out[b].Due)
		}
		return out[a].Due.Before(out[b].Due)
	})
	return out
}

func hasStatus(statuses []domain.Status, s domain.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
