// Package handshake keeps the short-lived server state of SRP logins between
// login-init and login-verify in a NATS JetStream key-value bucket.
//
// Each session is written once and can be taken once: Take reads the entry
// and deletes it guarded by its revision, so of several concurrent takers
// exactly one gets the session.
package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/logging"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the bucket name used when none is configured.
const DefaultBucket = "SRP_HANDSHAKES"

type Store struct {
	bucket kvBucket
	ttl    time.Duration
	now    func() time.Time
	log    logging.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates or updates the bucket and returns a store on top of it.
// The bucket TTL is common.HandshakeTTL.
func NewStore(ctx context.Context, js jetstream.JetStream, bucket string, opts ...Option) (*Store, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "SRP login handshakes awaiting verification",
		TTL:         common.HandshakeTTL,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}
	return newStore(jsBucket{kv: kv}, opts...), nil
}

func newStore(b kvBucket, opts ...Option) *Store {
	s := &Store{
		bucket: b,
		ttl:    common.HandshakeTTL,
		now:    time.Now,
		log:    logging.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a new session under its SessionID and stamps its creation and
// expiry times. An existing session with the same id is never replaced.
func (s *Store) Put(ctx context.Context, session *models.HandshakeSession) error {
	if _, err := uuid.Parse(session.SessionID); err != nil {
		return fmt.Errorf("session id: %w", err)
	}

	now := s.now()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.bucket.Create(ctx, session.SessionID, data); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Take removes the session and returns it. Unknown, expired and already
// taken sessions all yield common.ErrSessionExpiredOrMissing.
func (s *Store) Take(ctx context.Context, sessionID string) (*models.HandshakeSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, common.ErrSessionExpiredOrMissing
	}

	data, rev, err := s.bucket.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, common.ErrSessionExpiredOrMissing
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if err := s.bucket.DeleteRevision(ctx, sessionID, rev); err != nil {
		if errors.Is(err, errConflict) {
			s.log.Debug(ctx, "handshake session taken concurrently", "session_id", sessionID)
			return nil, common.ErrSessionExpiredOrMissing
		}
		return nil, fmt.Errorf("delete session: %w", err)
	}

	var session models.HandshakeSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if session.Expired(s.now()) {
		return nil, common.ErrSessionExpiredOrMissing
	}
	return &session, nil
}
