package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/velvet/internal/domain/model"
)

// CreateUser inserts one member row.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return fmt.Errorf("display name is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, display_name, social_score, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.DisplayName, u.SocialScore, boolToInt(u.IsActive),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns one member by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return scanUser(s.sqlDB.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

// GetUserTx returns one member by id inside tx.
func (s *Store) GetUserTx(ctx context.Context, tx *sql.Tx, id string) (model.User, error) {
	return scanUser(tx.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

// UpdateUserScoreTx sets the cached social score inside tx. The ledger row
// appended in the same tx is the source of truth.
func (s *Store) UpdateUserScoreTx(ctx context.Context, tx *sql.Tx, id string, score float64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET social_score = ?, updated_at = ? WHERE id = ?`,
		score, nowMillis(), id,
	)
	if err != nil {
		return fmt.Errorf("update user score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user score: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountUsers returns the number of tracked members.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

const selectUser = `SELECT id, display_name, social_score, is_active, created_at, updated_at FROM users`

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u                    model.User
		isActive             int
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.DisplayName, &u.SocialScore, &isActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.IsActive = isActive != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
