package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestUpdateJob_UnchangedValuesSendNothing(t *testing.T) {
	f := newFixture(t)
	due := baseTime.Add(72 * time.Hour)
	f.seedJob(1, domain.StatusAssigned, due)
	f.assign(1, translatorA)

	sameDue := due.In(time.UTC)
	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Status:          domain.StatusAssigned,
		Due:             &sameDue,
		FromLanguageID:  5,
		TranslatorEmail: "ANNA@example.com",
	}, adminID)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.False(t, result.StatusChanged)
	assert.Empty(t, result.Log)
	assert.Empty(t, f.outbox.Emails())
	assert.Empty(t, f.outbox.Pushes())
	assert.Len(t, f.assignments(t, 1), 1)
}

func TestScenario_StartedToCompleted(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusStarted, baseTime.Add(-30*time.Minute))
	f.assign(1, translatorA)

	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Status:        domain.StatusCompleted,
		AdminComments: strPtr("done"),
		SessionTime:   "1:30",
	}, adminID)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.True(t, result.StatusChanged)
	assert.True(t, result.PastDue)

	job := f.job(t, 1)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, "1:30", job.SessionTime)
	assert.Equal(t, "done", job.AdminComments)
	require.NotNil(t, job.EndAt)

	emails := f.outbox.EmailsByTemplate(TemplateSessionEnded)
	require.Len(t, emails, 2)

	byRecipient := map[string]domain.Email{}
	for _, e := range emails {
		byRecipient[e.To] = e
	}
	require.Contains(t, byRecipient, "kund@example.com")
	require.Contains(t, byRecipient, "anna@example.com")
	assert.Equal(t, "faktura", byRecipient["kund@example.com"].Data["for_text"])
	assert.Equal(t, "lön", byRecipient["anna@example.com"].Data["for_text"])
	assert.Equal(t, "1 tim 30 min", byRecipient["kund@example.com"].Data["session_time"])
	assert.Equal(t, []LogEntry{{Kind: LogStatus, Old: "started", New: "completed"}}, result.Log)
}

func TestUpdateJob_MissingCommentIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusStarted, baseTime.Add(-30*time.Minute))
	f.assign(1, translatorA)

	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Status:      domain.StatusCompleted,
		SessionTime: "1:30",
	}, adminID)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, domain.StatusStarted, f.job(t, 1).Status)
	assert.Empty(t, f.outbox.Emails())
}

func TestUpdateJob_PastDueSkipsChangeNotifications(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusAssigned, baseTime.Add(72*time.Hour))
	f.assign(1, translatorA)

	past := baseTime.Add(-time.Hour)
	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Due:             &past,
		FromLanguageID:  7,
		TranslatorEmail: "bo@example.com",
	}, adminID)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.True(t, result.PastDue)
	assert.Len(t, result.Log, 3)

	job := f.job(t, 1)
	assert.True(t, job.Due.Equal(past))
	assert.Equal(t, 7, job.FromLanguageID)

	active := domain.ActiveAssignment(f.assignments(t, 1))
	require.NotNil(t, active)
	assert.Equal(t, translatorB, active.UserID)

	assert.Empty(t, f.outbox.Emails())
	assert.Empty(t, f.outbox.Pushes())
}

func TestUpdateJob_ChangeNotifications(t *testing.T) {
	f := newFixture(t)
	due := baseTime.Add(72 * time.Hour)
	f.seedJob(1, domain.StatusAssigned, due)
	f.assign(1, translatorA)

	newDue := due.Add(2 * time.Hour)
	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Due:             &newDue,
		FromLanguageID:  7,
		TranslatorEmail: "bo@example.com",
		Reference:       strPtr("PO-77"),
	}, adminID)
	require.NoError(t, err)

	assert.False(t, result.PastDue)
	assert.False(t, result.StatusChanged)
	assert.Equal(t, []LogEntry{
		{Kind: LogTranslator, Old: "anna@example.com", New: "bo@example.com"},
		{Kind: LogDue, Old: "2026-03-13 12:00:00", New: "2026-03-13 14:00:00"},
		{Kind: LogLanguage, Old: "Svenska", New: "Arabiska"},
	}, result.Log)
	assert.Equal(t, "PO-77", f.job(t, 1).Reference)

	dateEmails := f.outbox.EmailsByTemplate(TemplateJobChangedDate)
	require.Len(t, dateEmails, 2)
	assert.Equal(t, "2026-03-13 12:00:00", dateEmails[0].Data["old_time"])

	assert.Len(t, f.outbox.EmailsByTemplate(TemplateTranslatorChangedCustomer), 1)
	old := f.outbox.EmailsByTemplate(TemplateTranslatorChangedOld)
	require.Len(t, old, 1)
	assert.Equal(t, "anna@example.com", old[0].To)
	fresh := f.outbox.EmailsByTemplate(TemplateTranslatorChangedNew)
	require.Len(t, fresh, 1)
	assert.Equal(t, "bo@example.com", fresh[0].To)

	langEmails := f.outbox.EmailsByTemplate(TemplateJobChangedLang)
	require.Len(t, langEmails, 2)
	assert.Equal(t, "Svenska", langEmails[0].Data["old_lang"])
}

func TestUpdateJob_PendingAssignedByAdmin(t *testing.T) {
	f := newFixture(t)
	f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

	result, err := f.m.UpdateJob(context.Background(), 1, ChangeSet{
		Status:       domain.StatusAssigned,
		TranslatorID: translatorA,
	}, adminID)
	require.NoError(t, err)

	assert.True(t, result.StatusChanged)
	assert.Equal(t, domain.StatusAssigned, f.job(t, 1).Status)
	assert.Nil(t, f.job(t, 1).PinnedTranslatorID)
	assert.Len(t, f.outbox.EmailsByTemplate(TemplateJobAccepted), 1)
	assert.Len(t, f.outbox.EmailsByTemplate(TemplateTranslatorChangedNew), 2)
	assert.ElementsMatch(t, []int64{customerID, translatorA}, recipientIDs(f.outbox.Pushes(), domain.NotificationSessionStartRemind))
}

func TestUpdateJob_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("non admin", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

		_, err := f.m.UpdateJob(ctx, 1, ChangeSet{Status: domain.StatusTimedOut, AdminComments: strPtr("x")}, customerID)
		assert.ErrorIs(t, err, domain.ErrRole)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

		_, err := f.m.UpdateJob(ctx, 1, ChangeSet{Status: "archived"}, adminID)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown translator email", func(t *testing.T) {
		f := newFixture(t)
		f.seedJob(1, domain.StatusPending, baseTime.Add(72*time.Hour))

		_, err := f.m.UpdateJob(ctx, 1, ChangeSet{TranslatorEmail: "nobody@example.com"}, adminID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
