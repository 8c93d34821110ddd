// Package intake validates raw booking requests and turns them into pending jobs.
package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
)

// DueLayout is how due_date and due_time are joined and parsed
const DueLayout = "01/02/2006 15:04"

// Request holds the raw fields a customer submits
type Request struct {
	FromLanguageID       int      `json:"from_language_id"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	CustomerPhoneType    string   `json:"customer_phone_type"`
	CustomerPhysicalType string   `json:"customer_physical_type"`
	Duration             int      `json:"duration"`
	Immediate            string   `json:"immediate"`
	JobFor               []string `json:"job_for"`
	ByAdmin              bool     `json:"by_admin"`
}

// EmailDetails are attached to a job right after it is created
type EmailDetails struct {
	UserEmail    string  `json:"user_email"`
	Reference    string  `json:"reference"`
	Address      *string `json:"address"`
	Instructions *string `json:"instructions"`
	Town         *string `json:"town"`
}

// Builder turns requests into jobs
type Builder struct {
	location *time.Location
	lead     time.Duration
}

// NewBuilder creates a builder parsing due times in loc
func NewBuilder(loc *time.Location, lead time.Duration) *Builder {
	if loc == nil {
		loc = time.Local
	}
	if lead <= 0 {
		lead = timeutil.ImmediateLeadTime
	}
	return &Builder{location: loc, lead: lead}
}

// Build validates req and returns the pending job it describes. Nothing is persisted.
func (b *Builder) Build(customer *domain.User, profile *domain.UserProfile, req Request, now time.Time) (*domain.Job, error) {
	if !customer.Is(domain.RoleCustomer) {
		return nil, domain.ErrRole
	}

	if field := firstMissing(req); field != "" {
		return nil, &domain.MissingFieldError{Field: field}
	}

	job := &domain.Job{
		UserID:               customer.ID,
		FromLanguageID:       req.FromLanguageID,
		Duration:             req.Duration,
		CustomerPhoneType:    flag(req.CustomerPhoneType),
		CustomerPhysicalType: flag(req.CustomerPhysicalType),
		Status:               domain.StatusPending,
		CreatedAt:            now,
		ByAdmin:              req.ByAdmin,
	}

	if flag(req.Immediate) {
		job.Immediate = true
		job.CustomerPhoneType = true
		job.Due = timeutil.ImmediateDue(now, b.lead)
	} else {
		due, err := time.ParseInLocation(DueLayout, strings.TrimSpace(req.DueDate)+" "+strings.TrimSpace(req.DueTime), b.location)
		if err != nil {
			return nil, fmt.Errorf("%w: due date %q %q", domain.ErrInvalidInput, req.DueDate, req.DueTime)
		}
		if !due.After(now) {
			return nil, domain.ErrPastDue
		}
		job.Due = due
	}

	job.Gender, job.Certified = ResolveJobFor(req.JobFor)

	if profile != nil {
		job.JobType = JobTypeForConsumer(profile.ConsumerType)
	}
	job.WillExpireAt = timeutil.WillExpireAt(job.Due, now)

	return job, nil
}

// JobTypeForConsumer maps a customer's consumer type; unknown types map to none
func JobTypeForConsumer(consumerType string) domain.JobType {
	switch consumerType {
	case "rwsconsumer":
		return domain.JobTypeRWS
	case "ngo":
		return domain.JobTypeUnpaid
	case "paid":
		return domain.JobTypePaid
	}
	return domain.JobTypeNone
}

// ApplyEmailDetails sets the contact fields. Address, instructions and town are
// only touched when an address is given, falling back to the owner's profile.
func ApplyEmailDetails(job *domain.Job, details EmailDetails, owner *domain.UserProfile) {
	job.UserEmail = strings.TrimSpace(details.UserEmail)
	job.Reference = details.Reference

	if details.Address == nil {
		return
	}
	if owner == nil {
		owner = &domain.UserProfile{}
	}
	job.Address = *details.Address
	job.Instructions = pick(details.Instructions, owner.Instructions)
	job.Town = pick(details.Town, owner.City)
}

// JobToData flattens a job for events, pushes and email templates. job_for
// holds display labels; job_for_tags holds request tags that resolve back to
// the job's gender and certification.
func JobToData(job *domain.Job, owner *domain.UserProfile) map[string]any {
	data := map[string]any{
		"job_id":                 job.ID,
		"from_language_id":       job.FromLanguageID,
		"immediate":              yesNo(job.Immediate),
		"duration":               job.Duration,
		"status":                 string(job.Status),
		"gender":                 string(job.Gender),
		"certified":              string(job.Certified),
		"due":                    job.Due.Format("2006-01-02 15:04:05"),
		"due_date":               job.Due.Format("2006-01-02"),
		"due_time":               job.Due.Format("15:04:05"),
		"job_type":               string(job.JobType),
		"customer_phone_type":    yesNo(job.CustomerPhoneType),
		"customer_physical_type": yesNo(job.CustomerPhysicalType),
		"customer_town":          job.Town,
		"job_for":                DisplayTags(job),
		"job_for_tags":           RequestTags(job),
	}
	if owner != nil {
		data["customer_type"] = owner.CustomerType
		if job.Town == "" {
			data["customer_town"] = owner.City
		}
	}
	return data
}

func firstMissing(req Request) string {
	switch {
	case req.FromLanguageID == 0:
		return "from_language_id"
	case strings.TrimSpace(req.DueDate) == "":
		return "due_date"
	case strings.TrimSpace(req.DueTime) == "":
		return "due_time"
	case strings.TrimSpace(req.CustomerPhoneType) == "":
		return "customer_phone_type"
	case req.Duration <= 0:
		return "duration"
	}
	return ""
}

// flag reads a yes/no style input; anything set and not negative counts as yes
func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no", "false", "0", "off":
		return false
	}
	return true
}

func pick(v *string, fallback string) string {
	if v != nil && *v != "" {
		return *v
	}
	return fallback
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
