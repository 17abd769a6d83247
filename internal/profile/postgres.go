package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/puzzlemind/backend/internal/models"
)

// PostgresStore keeps one JSONB row per user. The signature is written
// whole on every save; partial updates are never attempted.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*models.BehavioralSignature, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT signature FROM behavioral_signatures WHERE user_id = $1`, userID,
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

func (s *PostgresStore) Save(ctx context.Context, sig *models.BehavioralSignature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO behavioral_signatures (user_id, signature, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET signature = EXCLUDED.signature, updated_at = NOW()`,
		sig.UserID, raw,
	)
	if err != nil {
		return fmt.Errorf("save signature: %w", err)
	}
	return nil
}

func (s *PostgresStore) Size(ctx context.Context) (int64, error) {
	var size int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(pg_total_relation_size('behavioral_signatures'), 0)`,
	).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("storage size: %w", err)
	}
	return size, nil
}
