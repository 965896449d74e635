package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps per-user connection sets and online status in Redis so a
// peer instance (or the presence endpoint) can answer "is this user
// online" without touching the hub.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) connKey(userID string) string   { return fmt.Sprintf("%s:conn:%s", s.prefix, userID) }
func (s *Store) statusKey(userID string) string { return fmt.Sprintf("%s:presence:%s", s.prefix, userID) }

func (s *Store) AddConnection(ctx context.Context, userID, socketID string) error {
	if err := s.client.SAdd(ctx, s.connKey(userID), socketID).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), s.ttl).Err()
	return s.client.HSet(ctx, s.statusKey(userID),
		"status", "online", "last_seen", time.Now().Unix()).Err()
}

func (s *Store) RemoveConnection(ctx context.Context, userID, socketID string) error {
	if err := s.client.SRem(ctx, s.connKey(userID), socketID).Err(); err != nil {
		return err
	}
	n, err := s.client.SCard(ctx, s.connKey(userID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.client.HSet(ctx, s.statusKey(userID),
			"status", "offline", "last_seen", time.Now().Unix()).Err()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (Status, error) {
	vals, err := s.client.HGetAll(ctx, s.statusKey(userID)).Result()
	if err != nil {
		return Status{}, err
	}
	if len(vals) == 0 {
		return Status{Status: "offline"}, nil
	}
	st := Status{Status: vals["status"]}
	fmt.Sscanf(vals["last_seen"], "%d", &st.LastSeen)
	return st, nil
}
