package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

func TestTerminalStatusesMatchDomain(t *testing.T) {
	all := []domain.Status{
		domain.StatusPending, domain.StatusAssigned, domain.StatusStarted, domain.StatusCompleted,
		domain.StatusWithdrawnBefore24, domain.StatusWithdrawnAfter24, domain.StatusTimedOut,
		domain.StatusNotCarriedOutCustomer,
	}

	var want []string
	for _, s := range all {
		if s.IsTerminal() {
			want = append(want, string(s))
		}
	}
	assert.ElementsMatch(t, want, terminalStatuses)
}

func TestNotFound(t *testing.T) {
	err := notFound(sql.ErrNoRows, "job 7")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "job 7: not found", err.Error())

	other := errors.New("connection reset")
	err = notFound(other, "job 7")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileRow(t *testing.T) {
	row := profileRow{
		UserProfile: domain.UserProfile{UserID: 2, City: "Lund"},
		Languages:   pq.Int64Array{5, 9},
	}

	p := row.profile()
	assert.Equal(t, []int{5, 9}, p.Languages)
	assert.Equal(t, "Lund", p.City)
	assert.True(t, p.SpeaksLanguage(9))
}

func TestSchemaDeclaresEveryTable(t *testing.T) {
	for _, table := range []string{"users", "user_profiles", "user_blacklist", "jobs", "translator_assignments", "distances"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestUpdateJobSet_ChecksVersion(t *testing.T) {
	assert.Contains(t, updateJobSet, "version = version + 1")
	assert.Contains(t, updateJobSet, "WHERE id = :id AND version = :version")
	assert.Contains(t, jobColumns, "version")
}

func TestSchemaAllowsOneActiveAssignment(t *testing.T) {
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active ON translator_assignments (job_id)")
	assert.Contains(t, schema, "WHERE cancel_at IS NULL AND completed_at IS NULL;")
	assert.Contains(t, schema, "ADD COLUMN IF NOT EXISTS version BIGINT")
}

func TestAssignmentConflict(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{name: "nil", err: nil},
		{name: "unique violation", err: fmt.Errorf("failed to create assignment: %w", &pq.Error{Code: "23505"}), conflict: true},
		{name: "foreign key violation", err: fmt.Errorf("failed to create assignment: %w", &pq.Error{Code: "23503"})},
		{name: "plain error", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assignmentConflict(tt.err)
			if tt.conflict {
				assert.ErrorIs(t, err, domain.ErrStatusConflict)
				return
			}
			assert.Equal(t, tt.err, err)
		})
	}
}
