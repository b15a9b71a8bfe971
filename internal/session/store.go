package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Umer-Fazal/pharmacore/internal/secrets"
)

const keyPrefix = "session:"

// Store keeps sessions in Redis keyed by their opaque id. The Redis TTL is
// a backstop for the per-request inactivity check: a key that outlives the
// window is dead either way.
type Store struct {
	rdb    *redis.Client
	window time.Duration
}

func NewStore(rdb *redis.Client, inactivityWindow time.Duration) *Store {
	return &Store{rdb: rdb, window: inactivityWindow}
}

// InactivityWindow returns the configured per-session idle limit.
func (st *Store) InactivityWindow() time.Duration {
	return st.window
}

// Create mints a fresh anonymous session and persists it.
func (st *Store) Create(ctx context.Context) (*Session, error) {
	id, err := secrets.NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &Session{
		ID:             id,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := st.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by id; (nil, nil) when absent or expired.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	raw, err := st.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

// Save persists the session under its id with a sliding TTL.
func (st *Store) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := st.rdb.Set(ctx, keyPrefix+sess.ID, raw, st.window).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete destroys a session. Deleting an unknown id is not an error.
func (st *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := st.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Regenerate swaps the session onto a new id and mints a new CSRF token,
// keeping the rest of the state. Called on every privilege escalation to
// defeat fixation.
func (st *Store) Regenerate(ctx context.Context, sess *Session) (*Session, error) {
	newID, err := secrets.NewToken()
	if err != nil {
		return nil, err
	}
	csrf, err := secrets.NewToken()
	if err != nil {
		return nil, err
	}

	oldID := sess.ID
	next := *sess
	next.ID = newID
	next.CSRFToken = csrf
	if err := st.Save(ctx, &next); err != nil {
		return nil, err
	}
	if err := st.Delete(ctx, oldID); err != nil {
		return nil, err
	}
	return &next, nil
}

// EnsureCSRF lazily mints the session's CSRF token. The token is stable for
// the session's lifetime until a regeneration replaces it.
func (st *Store) EnsureCSRF(ctx context.Context, sess *Session) (string, error) {
	if sess.CSRFToken != "" {
		return sess.CSRFToken, nil
	}
	token, err := secrets.NewToken()
	if err != nil {
		return "", err
	}
	sess.CSRFToken = token
	if err := st.Save(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Touch refreshes the activity timestamp, destroying and replacing the
// session when the inactivity window has elapsed. The returned bool is true
// when a fresh session replaced an expired one.
func (st *Store) Touch(ctx context.Context, sess *Session) (*Session, bool, error) {
	now := time.Now()
	if sess.ExpiredByInactivity(now, st.window) {
		if err := st.Delete(ctx, sess.ID); err != nil {
			return nil, false, err
		}
		fresh, err := st.Create(ctx)
		if err != nil {
			return nil, false, err
		}
		return fresh, true, nil
	}
	sess.LastActivityAt = now
	if err := st.Save(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, false, nil
}
