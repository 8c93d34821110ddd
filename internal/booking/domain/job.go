package domain

import "time"

// Status is the lifecycle state of a booking
type Status string

const (
	StatusPending               Status = "pending"
	StatusAssigned              Status = "assigned"
	StatusStarted               Status = "started"
	StatusCompleted             Status = "completed"
	StatusWithdrawnBefore24     Status = "withdrawbefore24"
	StatusWithdrawnAfter24      Status = "withdrawafter24"
	StatusTimedOut              Status = "timedout"
	StatusNotCarriedOutCustomer Status = "not_carried_out_customer"
)

// IsTerminal reports whether no transition may leave the status
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusWithdrawnBefore24, StatusWithdrawnAfter24, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// ActiveStatuses are shown in a user's current booking list
var ActiveStatuses = []Status{StatusPending, StatusAssigned, StatusStarted}

// HistoricStatuses are shown in a user's booking history
var HistoricStatuses = []Status{StatusCompleted, StatusWithdrawnBefore24, StatusWithdrawnAfter24, StatusTimedOut}

// Gender is the requested interpreter gender
type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Certification is the requested interpreter certification
type Certification string

const (
	CertificationNone      Certification = ""
	CertificationNormal    Certification = "normal"
	CertificationCertified Certification = "yes"
	CertificationLaw       Certification = "law"
	CertificationHealth    Certification = "health"
	CertificationBoth      Certification = "both"
	CertificationNLaw      Certification = "n_law"
	CertificationNHealth   Certification = "n_health"
)

// JobType is the commercial category of a booking
type JobType string

const (
	JobTypeNone   JobType = ""
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// Job is one interpretation booking
type Job struct {
	ID                   int64         `db:"id" json:"id"`
	UserID               int64         `db:"user_id" json:"user_id"`
	FromLanguageID       int           `db:"from_language_id" json:"from_language_id"`
	Gender               Gender        `db:"gender" json:"gender"`
	Certified            Certification `db:"certified" json:"certified"`
	JobType              JobType       `db:"job_type" json:"job_type"`
	Immediate            bool          `db:"immediate" json:"immediate"`
	Due                  time.Time     `db:"due" json:"due"`
	Duration             int           `db:"duration" json:"duration"`
	SessionTime          string        `db:"session_time" json:"session_time"`
	WillExpireAt         time.Time     `db:"will_expire_at" json:"will_expire_at"`
	CustomerPhoneType    bool          `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType bool          `db:"customer_physical_type" json:"customer_physical_type"`
	Status               Status        `db:"status" json:"status"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	EndAt                *time.Time    `db:"end_at" json:"end_at,omitempty"`
	CancelAt             *time.Time    `db:"cancel_at" json:"cancel_at,omitempty"`
	WithdrawAt           *time.Time    `db:"withdraw_at" json:"withdraw_at,omitempty"`
	AdminComments        string        `db:"admin_comments" json:"admin_comments"`
	Reference            string        `db:"reference" json:"reference"`
	UserEmail            string        `db:"user_email" json:"user_email"`
	Address              string        `db:"address" json:"address"`
	Instructions         string        `db:"instructions" json:"instructions"`
	Town                 string        `db:"town" json:"town"`
	ByAdmin              bool          `db:"by_admin" json:"by_admin"`
	EmailSent            bool          `db:"email_sent" json:"email_sent"`
	EmailSentToVirpal    bool          `db:"email_sent_to_virpal" json:"email_sent_to_virpal"`
	Flagged              bool          `db:"flagged" json:"flagged"`
	ManuallyHandled      bool          `db:"manually_handled" json:"manually_handled"`
	PinnedTranslatorID   *int64        `db:"pinned_translator_id" json:"pinned_translator_id,omitempty"`
	Version              int64         `db:"version" json:"version"`
}

// RequiresTownMatch is true for in-person bookings that cannot fall back to phone
func (j *Job) RequiresTownMatch() bool {
	return j.CustomerPhysicalType && !j.CustomerPhoneType
}

// Assignment binds one translator to one job
type Assignment struct {
	ID          int64      `db:"id" json:"id"`
	JobID       int64      `db:"job_id" json:"job_id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CancelAt    *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *int64     `db:"completed_by" json:"completed_by,omitempty"`
}

// Active reports whether the assignment is the job's current one
func (a Assignment) Active() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}

// CurrentAssignment picks the active assignment, falling back to a completed one
func CurrentAssignment(assignments []Assignment) *Assignment {
	for i := range assignments {
		if assignments[i].Active() {
			return &assignments[i]
		}
	}
	for i := range assignments {
		if assignments[i].CancelAt == nil && assignments[i].CompletedAt != nil {
			return &assignments[i]
		}
	}
	return nil
}

// ActiveAssignment returns the single assignment with neither cancel nor completion set
func ActiveAssignment(assignments []Assignment) *Assignment {
	for i := range assignments {
		if assignments[i].Active() {
			return &assignments[i]
		}
	}
	return nil
}

// PinnedTo returns the only translator who may still take the job, or 0.
// An active assignment on a pending job pins it to that translator.
func (j *Job) PinnedTo(active *Assignment) int64 {
	if active != nil {
		return active.UserID
	}
	if j.PinnedTranslatorID != nil {
		return *j.PinnedTranslatorID
	}
	return 0
}

// JobUpdate is applied by a JobStore in one transaction. The job row is only
// written while its stored version still equals Job.Version and, when set,
// its stored status equals ExpectedStatus. A successful write increments
// Job.Version. At most one assignment per job may be active afterwards.
type JobUpdate struct {
	Job                  *Job
	ExpectedStatus       Status
	CancelAssignmentID   int64
	NewAssignment        *Assignment
	CompleteAssignmentID int64
	CompletedBy          int64
	DeleteAssignmentUser int64
	At                   time.Time
}

// DistanceFeed carries the admin's post-session bookkeeping for a job
type DistanceFeed struct {
	JobID           int64
	Distance        string
	Time            string
	SessionTime     string
	AdminComment    string
	Flagged         bool
	ManuallyHandled bool
	ByAdmin         bool
}
