package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// PostgresStore backs accounts with Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (public_id, email, name, username, password, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		user.PublicID, user.Email, user.Name, user.Username, user.Password, now, now,
	).Scan(&user.ID)
	if err != nil {
		// The constraint name tells us which unique column collided.
		switch {
		case strings.Contains(err.Error(), "users_username_key"):
			return ErrUsernameTaken
		case strings.Contains(err.Error(), "duplicate key"):
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, name, COALESCE(username, ''), password, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.PublicID, &user.Email, &user.Name, &user.Username,
		&user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) ByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, name, COALESCE(username, ''), created_at, updated_at
		 FROM users WHERE public_id = $1`,
		publicID,
	).Scan(&user.ID, &user.PublicID, &user.Email, &user.Name, &user.Username,
		&user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by public id: %w", err)
	}
	return &user, nil
}
