package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// SQLiteStore backs accounts with an embedded SQLite database. Timestamps
// are stored as RFC3339Nano text.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (public_id, email, name, username, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.PublicID, user.Email, user.Name, user.Username, user.Password,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "users.username"):
			return ErrUsernameTaken
		case strings.Contains(err.Error(), "UNIQUE constraint failed"):
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		user.ID = id
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	var createdStr, updatedStr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, name, COALESCE(username, ''), password, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.PublicID, &user.Email, &user.Name, &user.Username,
		&user.Password, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr.String)
	user.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr.String)
	return &user, nil
}

func (s *SQLiteStore) ByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	var user models.User
	var createdStr, updatedStr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, name, COALESCE(username, ''), created_at, updated_at
		 FROM users WHERE public_id = ?`,
		publicID,
	).Scan(&user.ID, &user.PublicID, &user.Email, &user.Name, &user.Username,
		&createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by public id: %w", err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr.String)
	user.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr.String)
	return &user, nil
}
