package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Store persists sessions as JSON strings under KeyPrefix+id.
// Keys expire with the session cookie, or after DefaultTTL when the
// cookie has none.
type Store struct {
	session.Readiness

	db            redis.UniversalClient
	prefix        string
	ttl           time.Duration
	scanBatchSize int64

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeyPrefix sets the key namespace (default "sess:").
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithDefaultTTL sets the lifetime of records without a cookie expiry.
func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithScanBatchSize sets the SCAN COUNT hint used by All, Len and Clear.
func WithScanBatchSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.scanBatchSize = int64(n)
		}
	}
}

// NewStore wraps client. The client stays owned by the caller.
func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{
		db:            client,
		prefix:        "sess:",
		ttl:           24 * time.Hour,
		scanBatchSize: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromConfig creates a store and, when cfg.HealthcheckInterval is
// positive, starts pinging Redis to keep the readiness flag current.
func NewStoreFromConfig(client redis.UniversalClient, cfg Config) *Store {
	s := NewStore(client,
		WithKeyPrefix(cfg.KeyPrefix),
		WithDefaultTTL(cfg.DefaultTTL),
		WithScanBatchSize(cfg.ScanBatchSize),
	)
	if cfg.HealthcheckInterval > 0 {
		s.StartMonitor(cfg.HealthcheckInterval)
	}
	return s
}

// StartMonitor pings Redis every interval until Close. While pings fail the
// store reports not ready and the session middleware serves requests
// without sessions.
func (s *Store) StartMonitor(interval time.Duration) {
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		session.Monitor(ctx, &s.Readiness, interval, Healthcheck(s.db))
	}()
}

// Close stops the monitor. It does not close the client.
func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
		s.wg.Wait()
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Get returns (nil, nil) for missing keys.
func (s *Store) Get(ctx context.Context, id string) (*session.Data, error) {
	if !s.Ready() {
		return nil, session.ErrStoreUnavailable
	}

	raw, err := s.db.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Set writes the record with a TTL derived from its cookie. A record that
// has already expired is removed instead.
func (s *Store) Set(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil {
		data = &session.Data{}
	}

	ttl := s.ttlFor(data)
	if ttl <= 0 {
		return s.db.Del(ctx, s.key(id)).Err()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, s.key(id), raw, ttl).Err()
}

// Touch pushes the key's expiry forward without rewriting the record.
func (s *Store) Touch(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil {
		return nil
	}
	ttl := s.ttlFor(data)
	if ttl <= 0 {
		return nil
	}
	return s.db.Expire(ctx, s.key(id), ttl).Err()
}

// Destroy deletes the key.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	return s.db.Del(ctx, s.key(id)).Err()
}

// All returns every record under the prefix.
func (s *Store) All(ctx context.Context) (map[string]*session.Data, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*session.Data, len(keys))
	for chunk := range slices.Chunk(keys, int(s.scanBatchSize)) {
		vals, err := s.db.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				// Expired between SCAN and MGET.
				continue
			}
			data, err := decode([]byte(str))
			if err != nil {
				return nil, err
			}
			out[chunk[i][len(s.prefix):]] = data
		}
	}
	return out, nil
}

// Len counts the keys under the prefix.
func (s *Store) Len(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear deletes every key under the prefix. Other keys in the database are left alone.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for chunk := range slices.Chunk(keys, int(s.scanBatchSize)) {
		if err := s.db.Del(ctx, chunk...).Err(); err != nil {
			return err
		}
	}
	return nil
}

// keys lists the prefix using SCAN to avoid blocking Redis.
func (s *Store) keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.db.Scan(ctx, cursor, s.prefix+"*", s.scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *Store) ttlFor(data *session.Data) time.Duration {
	if exp := data.Cookie.Expires(); exp != nil {
		return time.Until(*exp)
	}
	return s.ttl
}

func decode(raw []byte) (*session.Data, error) {
	var data session.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return &data, nil
}
