package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
)

const keyPrefix = "flowershop:session:"

// SessionStore keeps sessions as JSON values with sliding expiry.
type SessionStore struct {
	client goredis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore creates redis backed session store.
func NewSessionStore(client goredis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, now: time.Now}
}

func sessionKey(customerID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, customerID)
}

func (s *SessionStore) Get(ctx context.Context, customerID int64) (*model.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *model.Session) error {
	stored := session.Clone()
	stored.UpdatedAt = s.now().UTC()

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(session.CustomerID), string(payload), s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, customerID int64) error {
	if err := s.client.Del(ctx, sessionKey(customerID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
