package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"optimahub/internal/platform/db"
)

var (
	ErrIdempotencyConflict   = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still running")
)

// IdempotencyStore replays the stored answer of a repeated write. A key is reserved before
// the write runs, so concurrent submissions with the same key cannot both proceed. Without a
// database it keeps keys in memory for the lifetime of the process.
type IdempotencyStore struct {
	db db.Queryer

	mu     sync.Mutex
	memory map[string]storedResponse
	ttl    time.Duration
	now    func() time.Time
}

// storedResponse with a nil response is a reservation whose write has not finished.
type storedResponse struct {
	hash     string
	response json.RawMessage
	savedAt  time.Time
}

func NewIdempotencyStore(q db.Queryer) *IdempotencyStore {
	return &IdempotencyStore{
		db:     q,
		memory: make(map[string]storedResponse),
		ttl:    24 * time.Hour,
		now:    time.Now,
	}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Reserve claims key for one write. It returns the stored answer and true when the write
// already finished, ErrIdempotencyInProgress while another holder runs it, and
// ErrIdempotencyConflict when the key was used with a different payload. A nil error with
// false means the caller owns the key and must Complete or Release it.
func (s *IdempotencyStore) Reserve(ctx context.Context, actor, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	if s.db == nil {
		return s.reserveMemory(actor, endpoint, key, requestHash)
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (actor, endpoint, key, request_hash)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (actor, endpoint, key) DO NOTHING
  `, actor, endpoint, key, requestHash)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return nil, false, nil
	}

	var storedHash string
	var stored json.RawMessage
	err = s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE actor = $1 AND endpoint = $2 AND key = $3
  `, actor, endpoint, key).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, ErrIdempotencyInProgress
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	if stored == nil {
		return nil, false, ErrIdempotencyInProgress
	}
	return stored, true, nil
}

// Complete stores the answer of a reserved write.
func (s *IdempotencyStore) Complete(ctx context.Context, actor, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.memory[memoryKey(actor, endpoint, key)] = storedResponse{hash: requestHash, response: append(json.RawMessage{}, response...), savedAt: s.now()}
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    UPDATE idempotency_keys SET response_json = $5
    WHERE actor = $1 AND endpoint = $2 AND key = $3 AND request_hash = $4
  `, actor, endpoint, key, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release drops an unfinished reservation so the write may be retried with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, actor, endpoint, key string) error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		k := memoryKey(actor, endpoint, key)
		if stored, ok := s.memory[k]; ok && stored.response == nil {
			delete(s.memory, k)
		}
		return nil
	}
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE actor = $1 AND endpoint = $2 AND key = $3 AND response_json IS NULL
  `, actor, endpoint, key)
	return err
}

// Prune drops answers older than the retention window.
func (s *IdempotencyStore) Prune(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		var removed int64
		for k, v := range s.memory {
			if v.savedAt.Before(cutoff) {
				delete(s.memory, k)
				removed++
			}
		}
		return removed, nil
	}
	tag, err := s.db.Exec(ctx, "DELETE FROM idempotency_keys WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func memoryKey(actor, endpoint, key string) string {
	return actor + "\x00" + endpoint + "\x00" + key
}

func (s *IdempotencyStore) reserveMemory(actor, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(actor, endpoint, key)
	if stored, ok := s.memory[k]; ok && s.now().Sub(stored.savedAt) <= s.ttl {
		switch {
		case stored.hash != requestHash:
			return nil, false, ErrIdempotencyConflict
		case stored.response == nil:
			return nil, false, ErrIdempotencyInProgress
		default:
			return stored.response, true, nil
		}
	}
	s.memory[k] = storedResponse{hash: requestHash, savedAt: s.now()}
	return nil, false, nil
}
