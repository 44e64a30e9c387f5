package pg

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

const (
	getQuery = `SELECT data FROM sessions WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`

	upsertQuery = `INSERT INTO sessions (id, data, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`

	touchQuery = `UPDATE sessions SET data = jsonb_set(data, '{cookie}', $2::jsonb), expires_at = $3
WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`

	destroyQuery       = `DELETE FROM sessions WHERE id = $1`
	allQuery           = `SELECT id, data FROM sessions WHERE expires_at IS NULL OR expires_at > now()`
	lenQuery           = `SELECT count(*) FROM sessions WHERE expires_at IS NULL OR expires_at > now()`
	clearQuery         = `DELETE FROM sessions`
	deleteExpiredQuery = `DELETE FROM sessions WHERE expires_at <= now()`
)

// Store persists sessions in the sessions table created by Migrate.
type Store struct {
	session.Readiness

	pool *pgxpool.Pool

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewStore wraps pool. The pool stays owned by the caller.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewStoreFromConfig creates a store and starts the readiness monitor and
// the expiry sweep configured in cfg.
func NewStoreFromConfig(pool *pgxpool.Pool, cfg Config) *Store {
	s := NewStore(pool)
	s.Start(cfg.ReadinessInterval, cfg.CleanupInterval)
	return s
}

// Start runs the readiness monitor and the expiry sweep until Close.
// A non-positive interval disables the matching job.
func (s *Store) Start(readiness, cleanup time.Duration) {
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	if readiness > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session.Monitor(ctx, &s.Readiness, readiness, Healthcheck(s.pool))
		}()
	}

	if cleanup > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(cleanup)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if s.Ready() {
						_, _ = s.DeleteExpired(ctx)
					}
				}
			}
		}()
	}
}

// Close stops the background jobs. It does not close the pool.
func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
		s.wg.Wait()
	}
	return nil
}

// Get returns (nil, nil) for missing and expired rows.
func (s *Store) Get(ctx context.Context, id string) (*session.Data, error) {
	if !s.Ready() {
		return nil, session.ErrStoreUnavailable
	}

	var raw []byte
	if err := s.pool.QueryRow(ctx, getQuery, id).Scan(&raw); err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode(raw)
}

// Set upserts the row.
func (s *Store) Set(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil {
		data = &session.Data{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertQuery, id, raw, data.Cookie.Expires())
	return err
}

// Touch rewrites the stored cookie and expiry of a live row.
func (s *Store) Touch(ctx context.Context, id string, data *session.Data) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	if data == nil || data.Cookie == nil {
		return nil
	}
	raw, err := json.Marshal(data.Cookie)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, touchQuery, id, raw, data.Cookie.Expires())
	return err
}

// Destroy deletes the row.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if !s.Ready() {
		return session.ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, destroyQuery, id)
	return err
}

// All returns every live row keyed by id.
func (s *Store) All(ctx context.Context) (map[string]*session.Data, error) {
	rows, err := s.pool.Query(ctx, allQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*session.Data)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, rows.Err()
}

// Len counts live rows.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, lenQuery).Scan(&n)
	return n, err
}

// Clear deletes every row.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, clearQuery)
	return err
}

// DeleteExpired removes expired rows and reports how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteExpiredQuery)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func decode(raw []byte) (*session.Data, error) {
	var data session.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return &data, nil
}
