package lifecycle

import (
	"strings"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
)

// notice is a side effect a transition asks for once it is committed
type notice int

const (
	noticeReopened notice = iota + 1
	noticeAccepted
	noticeSessionEnded
	noticeAssigned
	noticeCustomerCancelled
	noticeTranslatorCancelled
)

type transitionInput struct {
	now               time.Time
	translatorChanged bool
}

type transition struct {
	changed bool
	notices []notice
}

// transitionHandler works on a copy of the job; it never performs I/O
type transitionHandler func(job domain.Job, cs ChangeSet, in transitionInput) (domain.Job, transition)

// transitions is keyed by the job's status before the update
var transitions = map[domain.Status]transitionHandler{
	domain.StatusTimedOut:         fromTimedOut,
	domain.StatusCompleted:        fromCompleted,
	domain.StatusStarted:          fromStarted,
	domain.StatusPending:          fromPending,
	domain.StatusWithdrawnAfter24: fromWithdrawnAfter24,
	domain.StatusAssigned:         fromAssigned,
}

// applyTransition runs the handler for the job's current status. An empty or
// unchanged target, or a status without a handler, leaves the job untouched.
func applyTransition(job domain.Job, cs ChangeSet, in transitionInput) (domain.Job, transition) {
	if cs.Status == "" || cs.Status == job.Status {
		return job, transition{}
	}
	handler, ok := transitions[job.Status]
	if !ok {
		return job, transition{}
	}
	next, t := handler(job, cs, in)
	if !t.changed {
		return job, transition{}
	}
	return next, t
}

func fromTimedOut(job domain.Job, cs ChangeSet, in transitionInput) (domain.Job, transition) {
	if cs.Status == domain.StatusPending {
		job.Status = domain.StatusPending
		job.CreatedAt = in.now
		job.EmailSent = false
		job.EmailSentToVirpal = false
		job.WillExpireAt = timeutil.WillExpireAt(job.Due, in.now)
		return job, transition{changed: true, notices: []notice{noticeReopened}}
	}
	if in.translatorChanged {
		job.Status = cs.Status
		return job, transition{changed: true, notices: []notice{noticeAccepted}}
	}
	return job, transition{}
}

func fromCompleted(job domain.Job, cs ChangeSet, _ transitionInput) (domain.Job, transition) {
	switch cs.Status {
	case domain.StatusWithdrawnBefore24, domain.StatusWithdrawnAfter24:
	case domain.StatusTimedOut:
		if cs.comment() == "" {
			return job, transition{}
		}
		job.AdminComments = cs.comment()
	default:
		return job, transition{}
	}
	job.Status = cs.Status
	return job, transition{changed: true}
}

func fromStarted(job domain.Job, cs ChangeSet, in transitionInput) (domain.Job, transition) {
	if cs.comment() == "" {
		return job, transition{}
	}
	job.AdminComments = cs.comment()

	var notices []notice
	if cs.Status == domain.StatusCompleted {
		if _, err := timeutil.FormatSessionTime(cs.SessionTime); err != nil {
			return job, transition{}
		}
		end := in.now
		job.EndAt = &end
		job.SessionTime = strings.TrimSpace(cs.SessionTime)
		notices = append(notices, noticeSessionEnded)
	}
	job.Status = cs.Status
	return job, transition{changed: true, notices: notices}
}

func fromPending(job domain.Job, cs ChangeSet, in transitionInput) (domain.Job, transition) {
	if cs.Status == domain.StatusTimedOut && cs.comment() == "" {
		return job, transition{}
	}
	if cs.Status == domain.StatusAssigned {
		if !in.translatorChanged {
			return job, transition{}
		}
		job.Status = cs.Status
		job.AdminComments = cs.comment()
		return job, transition{changed: true, notices: []notice{noticeAssigned}}
	}
	job.Status = cs.Status
	job.AdminComments = cs.comment()
	return job, transition{changed: true, notices: []notice{noticeCustomerCancelled}}
}

func fromWithdrawnAfter24(job domain.Job, cs ChangeSet, _ transitionInput) (domain.Job, transition) {
	if cs.Status != domain.StatusTimedOut || cs.comment() == "" {
		return job, transition{}
	}
	job.Status = cs.Status
	job.AdminComments = cs.comment()
	return job, transition{changed: true}
}

func fromAssigned(job domain.Job, cs ChangeSet, _ transitionInput) (domain.Job, transition) {
	switch cs.Status {
	case domain.StatusWithdrawnBefore24, domain.StatusWithdrawnAfter24:
		job.Status = cs.Status
		job.AdminComments = cs.comment()
		return job, transition{changed: true, notices: []notice{noticeCustomerCancelled, noticeTranslatorCancelled}}
	case domain.StatusTimedOut:
		if cs.comment() == "" {
			return job, transition{}
		}
		job.Status = cs.Status
		job.AdminComments = cs.comment()
		return job, transition{changed: true}
	}
	return job, transition{}
}
