package domain

import (
	"context"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// UserDirectory is the read-only view of user management
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetProfile(ctx context.Context, userID int64) (*UserProfile, error)
	GetBlacklist(ctx context.Context, customerID int64) ([]int64, error)
	ActiveTranslators(ctx context.Context) ([]User, error)
}

// JobStore persists jobs and their assignment history
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id int64) (*Job, error)
	ApplyUpdate(ctx context.Context, u JobUpdate) error
	Assignments(ctx context.Context, jobID int64) ([]Assignment, error)
	HasOverlappingAssignment(ctx context.Context, translatorID int64, due time.Time, excludeJobID int64) (bool, error)
	ListPendingJobs(ctx context.Context) ([]Job, error)
	ListCustomerJobs(ctx context.Context, customerID int64, statuses []Status) ([]Job, error)
	ListTranslatorJobs(ctx context.Context, translatorID int64, statuses []Status) ([]Job, error)
	ListJobHistory(ctx context.Context, userID int64, role Role, page, pageSize int) ([]Job, int, error)
	UpdateDistance(ctx context.Context, feed DistanceFeed) error
}

// MessageTransport delivers outbound messages; delivery itself is external
type MessageTransport interface {
	SendEmail(ctx context.Context, email Email) error
	SendPush(ctx context.Context, env Envelope) error
	SendSMS(ctx context.Context, sms SMS) error
}

// EventSink receives domain events
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
