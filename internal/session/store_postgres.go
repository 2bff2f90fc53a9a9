package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"optimahub/internal/platform/crypto"
	"optimahub/internal/platform/db"
)

// PostgresStore keeps sessions in ui_sessions with the credential sealed at rest.
type PostgresStore struct {
	db     db.Queryer
	sealer *crypto.Sealer
}

func NewPostgresStore(q db.Queryer, sealer *crypto.Sealer) *PostgresStore {
	return &PostgresStore{db: q, sealer: sealer}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	sealed, err := s.sealer.SealString(rec.Token)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO ui_sessions (id, email, credential, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, credential = EXCLUDED.credential,
		    expires_at = EXCLUDED.expires_at, updated_at = now()
	`, rec.ID, rec.Email, sealed, rec.ExpiresAt)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Record, error) {
	var rec Record
	var sealed []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, email, credential, expires_at, created_at, updated_at
		FROM ui_sessions
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Email, &sealed, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, err
	}
	if len(sealed) > 0 {
		token, err := s.sealer.OpenString(sealed)
		if err != nil {
			return Record{}, fmt.Errorf("open credential: %w", err)
		}
		rec.Token = token
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM ui_sessions WHERE id = $1", id)
	return err
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM ui_sessions WHERE expires_at <= $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
