package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/puzzlemind/backend/internal/models"
)

// SQLiteStore mirrors PostgresStore for single-node deployments: one JSON
// row per user in a WAL-mode database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (*models.BehavioralSignature, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT signature FROM behavioral_signatures WHERE user_id = ?`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load signature: %w", err)
	}

	var sig models.BehavioralSignature
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signature: %w", err)
	}
	return &sig, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sig *models.BehavioralSignature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO behavioral_signatures (user_id, signature, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET signature = excluded.signature, updated_at = excluded.updated_at`,
		sig.UserID, raw, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save signature: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Size(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page size: %w", err)
	}
	return pageCount * pageSize, nil
}
