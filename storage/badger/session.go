package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
// A session's full history lives under a single key whose TTL is
// refreshed on every append; a session untouched for longer than the
// TTL disappears.
type SessionRepository struct {
	backend *Backend
	ttl     time.Duration
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
// A ttl of zero keeps sessions forever.
func NewSessionRepository(backend *Backend, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		backend: backend,
		ttl:     ttl,
	}
}

// GetTurns returns the turns of a session in chronological order.
func (r *SessionRepository) GetTurns(ctx context.Context, sessionID string) ([]core.Turn, error) {
	var turns []core.Turn
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		turns, err = r.readTurns(tx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []core.Turn{}
	}
	return turns, nil
}

// AppendTurns appends turns to a session in a single transaction.
func (r *SessionRepository) AppendTurns(ctx context.Context, sessionID string, turns ...core.Turn) error {
	if sessionID == "" {
		return storage.ErrInvalidQuery
	}
	for i := range turns {
		if err := core.ValidateTurn(&turns[i]); err != nil {
			return err
		}
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		existing, err := r.readTurns(tx, sessionID)
		if err != nil {
			return err
		}
		all := make([]core.Turn, 0, len(existing)+len(turns))
		all = append(all, existing...)
		for _, turn := range turns {
			if turn.Timestamp.IsZero() {
				turn.Timestamp = time.Now().UTC()
			}
			all = append(all, turn)
		}
		entry := badger.NewEntry(makeSessionKey(sessionID), storage.MarshalTurns(all))
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		return tx.SetEntry(entry)
	})
}

// DeleteSession removes a session's history.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Delete(makeSessionKey(sessionID))
	})
}

// readTurns reads a session's turns. Returns nil, nil for unknown sessions.
func (r *SessionRepository) readTurns(tx *badger.Txn, sessionID string) ([]core.Turn, error) {
	item, err := tx.Get(makeSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var turns []core.Turn
	err = item.Value(func(val []byte) error {
		var err error
		turns, err = storage.UnmarshalTurns(val)
		return err
	})
	return turns, err
}
