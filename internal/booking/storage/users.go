package storage

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/cuongbtq/booking-core/internal/booking/domain"
)

const userColumns = `id, email, name, mobile, role, active`

// profileRow carries the language set, which UserProfile does not map itself
type profileRow struct {
	domain.UserProfile
	Languages pq.Int64Array `db:"languages"`
}

func (r profileRow) profile() *domain.UserProfile {
	p := r.UserProfile
	p.Languages = make([]int, len(r.Languages))
	for i, l := range r.Languages {
		p.Languages[i] = int(l)
	}
	return &p
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower(trim($1))`

	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		return nil, notFound(err, fmt.Sprintf("user %q", email))
	}
	return &u, nil
}

func (s *Store) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	var row profileRow
	query := `
		SELECT
			user_id, translator_type, translator_level, gender, languages, city,
			address, instructions, consumer_type, customer_type,
			not_get_emergency, not_get_nighttime, not_get_notification
		FROM user_profiles
		WHERE user_id = $1
	`

	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, notFound(err, fmt.Sprintf("profile of user %d", userID))
	}
	return row.profile(), nil
}

func (s *Store) GetBlacklist(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT translator_id FROM user_blacklist WHERE customer_id = $1 ORDER BY translator_id`

	if err := s.db.SelectContext(ctx, &ids, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to load blacklist of customer %d: %w", customerID, err)
	}
	return ids, nil
}

func (s *Store) ActiveTranslators(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND active ORDER BY id`

	if err := s.db.SelectContext(ctx, &users, query, domain.RoleTranslator); err != nil {
		return nil, fmt.Errorf("failed to list active translators: %w", err)
	}
	return users, nil
}
