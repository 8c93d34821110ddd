package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/metrics"
)

const opUpdate = "update"

// ChangeSet is an admin's edit of a booking. Zero values mean "leave as is".
type ChangeSet struct {
	Status          domain.Status `json:"status"`
	AdminComments   *string       `json:"admin_comments"`
	SessionTime     string        `json:"session_time"`
	Due             *time.Time    `json:"due"`
	FromLanguageID  int           `json:"from_language_id"`
	TranslatorID    int64         `json:"translator"`
	TranslatorEmail string        `json:"translator_email"`
	Reference       *string       `json:"reference"`
}

func (cs ChangeSet) comment() string {
	if cs.AdminComments == nil {
		return ""
	}
	return strings.TrimSpace(*cs.AdminComments)
}

// Change log kinds
const (
	LogTranslator = "translator"
	LogDue        = "due"
	LogLanguage   = "language"
	LogStatus     = "status"
)

// LogEntry records one field changed by UpdateJob
type LogEntry struct {
	Kind string `json:"kind"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// UpdateResult describes what UpdateJob did
type UpdateResult struct {
	Changed       bool        `json:"changed"`
	StatusChanged bool        `json:"status_changed"`
	PastDue       bool        `json:"past_due"`
	Log           []LogEntry  `json:"log"`
	Job           *domain.Job `json:"job"`
}

// staged collects everything decided before the write
type staged struct {
	job           domain.Job
	original      domain.Job
	update        domain.JobUpdate
	log           []LogEntry
	oldTranslator *domain.User
	newTranslator *domain.User
	translatorID  int64
	dueChanged    bool
	langChanged   bool
	transition    transition
}

// UpdateJob applies an admin's changes to a booking. Only the acting admin's
// intended fields are written, in a single compare-and-set on the job's
// status as it was read. Notifications go out after the write.
func (m *Manager) UpdateJob(ctx context.Context, jobID int64, cs ChangeSet, actorID int64) (*UpdateResult, error) {
	actor, err := m.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting user %d: %w", actorID, err)
	}
	if !actor.IsAdmin() {
		return nil, m.rejected(opUpdate, domain.ErrRole)
	}
	if cs.Status != "" && !knownStatus(cs.Status) {
		return nil, m.rejected(opUpdate, fmt.Errorf("%w: status %q", domain.ErrInvalidInput, cs.Status))
	}

	job, assignments, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	s := &staged{job: *job, original: *job, update: domain.JobUpdate{ExpectedStatus: job.Status, At: now}}
	current := domain.CurrentAssignment(assignments)
	if current != nil {
		s.translatorID = current.UserID
	}

	if err := m.stageTranslator(ctx, s, cs, current, now); err != nil {
		return nil, err
	}
	m.stageDue(s, cs)
	m.stageLanguage(s, cs)

	s.job, s.transition = applyTransition(s.job, cs, transitionInput{now: now, translatorChanged: s.newTranslator != nil})
	if s.transition.changed {
		s.log = append(s.log, LogEntry{Kind: LogStatus, Old: string(s.original.Status), New: string(s.job.Status)})
	}
	if s.newTranslator != nil {
		s.job.PinnedTranslatorID = pinFor(s.job.Status, s.newTranslator.ID)
	}

	fieldsChanged := false
	if cs.AdminComments != nil && *cs.AdminComments != s.job.AdminComments {
		s.job.AdminComments = *cs.AdminComments
		fieldsChanged = true
	}
	if cs.Reference != nil && *cs.Reference != s.job.Reference {
		s.job.Reference = *cs.Reference
		fieldsChanged = true
	}

	result := &UpdateResult{StatusChanged: s.transition.changed, Log: s.log, Job: job}
	if len(s.log) == 0 && !fieldsChanged {
		m.metrics.Transition(opUpdate, metrics.OutcomeNoOp)
		return result, nil
	}

	s.update.Job = &s.job
	conflict := fmt.Errorf("%w: job %d changed status concurrently", domain.ErrTransitionNoOp, jobID)
	if err := m.commit(ctx, opUpdate, s.update, conflict); err != nil {
		return nil, err
	}

	result.Changed = true
	result.Job = &s.job

	m.logger.Info("Booking updated",
		slog.Int64("job_id", jobID),
		slog.Int64("actor_id", actor.ID),
		slog.Any("changes", s.log),
	)

	owner := m.user(ctx, s.job.UserID)
	m.runNotices(ctx, &s.job, owner, s.translatorID, s.transition.notices)

	if !s.job.Due.After(now) {
		result.PastDue = true
		return result, nil
	}

	if s.dueChanged {
		m.sendDateChanged(ctx, &s.job, owner, s.translatorID, s.original.Due)
	}
	if s.newTranslator != nil {
		m.sendTranslatorChanged(ctx, &s.job, owner, s.oldTranslator, s.newTranslator)
	}
	if s.langChanged {
		m.sendLanguageChanged(ctx, &s.job, owner, s.translatorID, s.original.FromLanguageID)
	}

	return result, nil
}

// stageTranslator resolves the requested translator and, when it differs from
// the current one, stages a soft-cancel of the old assignment and a new one.
func (m *Manager) stageTranslator(ctx context.Context, s *staged, cs ChangeSet, current *domain.Assignment, now time.Time) error {
	var requested *domain.User
	var err error
	switch {
	case cs.TranslatorID != 0:
		requested, err = m.users.FindByID(ctx, cs.TranslatorID)
	case strings.TrimSpace(cs.TranslatorEmail) != "":
		requested, err = m.users.FindByEmail(ctx, strings.TrimSpace(cs.TranslatorEmail))
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve translator: %w", err)
	}
	if !requested.Is(domain.RoleTranslator) {
		return m.rejected(opUpdate, fmt.Errorf("%w: user %d is not a translator", domain.ErrRole, requested.ID))
	}
	if current != nil && current.UserID == requested.ID {
		return nil
	}

	entry := LogEntry{Kind: LogTranslator, New: requested.Email}
	if current != nil {
		s.oldTranslator = m.user(ctx, current.UserID)
		if s.oldTranslator != nil {
			entry.Old = s.oldTranslator.Email
		}
		s.update.CancelAssignmentID = current.ID
	}
	s.update.NewAssignment = &domain.Assignment{JobID: s.job.ID, UserID: requested.ID, CreatedAt: now}
	s.newTranslator = requested
	s.translatorID = requested.ID
	s.log = append(s.log, entry)
	return nil
}

func (m *Manager) stageDue(s *staged, cs ChangeSet) {
	if cs.Due == nil || cs.Due.Equal(s.job.Due) {
		return
	}
	s.log = append(s.log, LogEntry{Kind: LogDue, Old: formatTime(s.job.Due), New: formatTime(*cs.Due)})
	s.job.Due = *cs.Due
	s.dueChanged = true
}

func (m *Manager) stageLanguage(s *staged, cs ChangeSet) {
	if cs.FromLanguageID == 0 || cs.FromLanguageID == s.job.FromLanguageID {
		return
	}
	s.log = append(s.log, LogEntry{
		Kind: LogLanguage,
		Old:  m.dispatcher.LanguageName(s.job.FromLanguageID),
		New:  m.dispatcher.LanguageName(cs.FromLanguageID),
	})
	s.job.FromLanguageID = cs.FromLanguageID
	s.langChanged = true
}

// runNotices performs the side effects requested by a committed transition
func (m *Manager) runNotices(ctx context.Context, job *domain.Job, owner *domain.User, translatorID int64, notices []notice) {
	if len(notices) == 0 {
		return
	}
	translator := m.user(ctx, translatorID)
	ref := notify.BookingRef(job.ID)

	for _, n := range notices {
		switch n {
		case noticeReopened:
			if owner != nil {
				subject := m.subject(notify.SubjectJobReopened, m.dispatcher.LanguageName(job.FromLanguageID), ref)
				m.dispatcher.SendEmails(ctx, job.ID, customerEmail(job, owner, subject, TemplateStatusChangedToCustomer, nil))
			}
			m.renotify(ctx, job, 0)

		case noticeAccepted:
			if owner != nil {
				m.dispatcher.SendEmails(ctx, job.ID, customerEmail(job, owner, m.subject(notify.SubjectJobAccepted, ref), TemplateJobAccepted, nil))
			}

		case noticeSessionEnded:
			m.sendSessionEnded(ctx, job, translatorID, nil)

		case noticeAssigned:
			var emails []domain.Email
			if owner != nil {
				emails = append(emails, customerEmail(job, owner, m.subject(notify.SubjectJobAccepted, ref), TemplateJobAccepted, nil))
			}
			if translator != nil {
				emails = append(emails, userEmail(job, translator, m.subject(notify.SubjectJobAccepted, ref), TemplateTranslatorChangedNew, nil))
			}
			m.dispatcher.SendEmails(ctx, job.ID, emails...)
			m.dispatcher.NotifySessionStartRemind(ctx, owner, job)
			m.dispatcher.NotifySessionStartRemind(ctx, translator, job)

		case noticeCustomerCancelled:
			if owner != nil {
				m.dispatcher.SendEmails(ctx, job.ID, customerEmail(job, owner, m.subject(notify.SubjectJobCancelled, ref), TemplateStatusChangedCustomer, nil))
			}

		case noticeTranslatorCancelled:
			if translator != nil {
				m.dispatcher.SendEmails(ctx, job.ID, userEmail(job, translator, m.subject(notify.SubjectJobCancelled, ref), TemplateJobCancelTranslator, nil))
			}
		}
	}
}

func (m *Manager) sendDateChanged(ctx context.Context, job *domain.Job, owner *domain.User, translatorID int64, oldDue time.Time) {
	subject := m.subject(notify.SubjectJobChanged, notify.BookingRef(job.ID))
	extra := map[string]any{"old_time": formatTime(oldDue)}

	var emails []domain.Email
	if owner != nil {
		emails = append(emails, customerEmail(job, owner, subject, TemplateJobChangedDate, extra))
	}
	if translator := m.user(ctx, translatorID); translator != nil {
		emails = append(emails, userEmail(job, translator, subject, TemplateJobChangedDate, extra))
	}
	m.dispatcher.SendEmails(ctx, job.ID, emails...)
}

func (m *Manager) sendTranslatorChanged(ctx context.Context, job *domain.Job, owner, oldTranslator, newTranslator *domain.User) {
	subject := m.subject(notify.SubjectTranslatorChanged, notify.BookingRef(job.ID))

	var emails []domain.Email
	if owner != nil {
		emails = append(emails, customerEmail(job, owner, subject, TemplateTranslatorChangedCustomer, nil))
	}
	if oldTranslator != nil {
		emails = append(emails, userEmail(job, oldTranslator, subject, TemplateTranslatorChangedOld, nil))
	}
	emails = append(emails, userEmail(job, newTranslator, subject, TemplateTranslatorChangedNew, nil))
	m.dispatcher.SendEmails(ctx, job.ID, emails...)
}

func (m *Manager) sendLanguageChanged(ctx context.Context, job *domain.Job, owner *domain.User, translatorID int64, oldLang int) {
	subject := m.subject(notify.SubjectJobChanged, notify.BookingRef(job.ID))
	extra := map[string]any{"old_lang": m.dispatcher.LanguageName(oldLang)}

	var emails []domain.Email
	if owner != nil {
		emails = append(emails, customerEmail(job, owner, subject, TemplateJobChangedLang, extra))
	}
	if translator := m.user(ctx, translatorID); translator != nil {
		emails = append(emails, userEmail(job, translator, subject, TemplateJobChangedLang, extra))
	}
	m.dispatcher.SendEmails(ctx, job.ID, emails...)
}

// renotify re-runs matching for a job that went back to pending
func (m *Manager) renotify(ctx context.Context, job *domain.Job, excludeUserID int64) {
	profile, err := m.profile(ctx, job.UserID)
	if err != nil {
		m.logger.Error("Failed to load owner profile", slog.Int64("job_id", job.ID), slog.Any("error", err))
	}
	if _, err := m.dispatcher.NotifyTranslatorsOfJob(ctx, job, intake.JobToData(job, profile), excludeUserID); err != nil {
		m.logger.Error("Failed to notify translators",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
	}
}

// pinFor keeps a translator an admin put on a still pending job as its only
// candidate until they accept.
func pinFor(status domain.Status, translatorID int64) *int64 {
	if status != domain.StatusPending {
		return nil
	}
	return &translatorID
}

func knownStatus(s domain.Status) bool {
	switch s {
	case domain.StatusPending, domain.StatusAssigned, domain.StatusStarted, domain.StatusCompleted,
		domain.StatusWithdrawnBefore24, domain.StatusWithdrawnAfter24, domain.StatusTimedOut,
		domain.StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// IsNoOp reports whether err only signals that nothing happened
func IsNoOp(err error) bool {
	return errors.Is(err, domain.ErrTransitionNoOp)
}
