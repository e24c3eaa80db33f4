package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"invofi/internal/config"
	"invofi/internal/extract"
	"invofi/internal/verify"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("verification session not found")

const keyPrefix = "verification:session:"

// Session is the per-upload verification state. Each upload gets its own
// session; there is no shared mutable verification state across uploads.
type Session struct {
	ID             string         `json:"id"`
	Status         verify.Status  `json:"status"`
	Extraction     extract.Fields `json:"extraction"`
	OCRText        string         `json:"ocr_text,omitempty"`
	OCRConfidence  float64        `json:"ocr_confidence"`
	OverrideReason string         `json:"override_reason,omitempty"`
	FileHash       string         `json:"file_hash"`
	StoragePath    string         `json:"storage_path"`
	ContentType    string         `json:"content_type"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store persists verification sessions with a TTL.
type Store interface {
	// Save writes the session, refreshing its TTL.
	Save(ctx context.Context, s *Session) error
	// Get returns a session by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// redisStore implements Store on Redis. Sessions are stored as JSON values
// under a prefixed key and expire after the configured TTL.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed session store and verifies connectivity.
func NewRedis(cfg config.RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client. Used by tests with miniredis.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (r *redisStore) Save(ctx context.Context, s *Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+s.ID, b, r.ttl).Err()
}

func (r *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}
