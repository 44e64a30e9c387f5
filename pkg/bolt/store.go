package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Each value is an 8 byte big-endian expiry in unix nanoseconds (zero for
// none) followed by the JSON record.
const headerSize = 8

// Store keeps sessions in a single bbolt bucket. Expired records are
// hidden on read and removed by DeleteExpired.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	ownsDB bool

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates the bucket in db if needed and returns a store using it.
// The database stays owned by the caller.
func New(db *bbolt.DB, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, ErrEmptyBucket
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, bucket: []byte(bucket), stop: make(chan struct{})}, nil
}

// Open opens the database file described by cfg and starts the sweeper.
// Close releases the file.
func Open(cfg Config) (*Store, error) {
	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, errors.Join(ErrOpenFailed, err)
	}
	s, err := New(db, cfg.Bucket)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	if cfg.CleanupInterval > 0 {
		s.StartCleanup(cfg.CleanupInterval)
	}
	return s, nil
}

// StartCleanup sweeps expired records every interval until Close.
func (s *Store) StartCleanup(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, _ = s.DeleteExpired(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper and closes the database when Open created it.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if s.ownsDB {
			err = s.db.Close()
		}
	})
	return err
}

// Get returns (nil, nil) for missing and expired records.
func (s *Store) Get(_ context.Context, id string) (*session.Data, error) {
	var data *session.Data
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		d, expired, err := decode(v, time.Now())
		if err != nil || expired {
			return err
		}
		data = d
		return nil
	})
	return data, err
}

// Set upserts the record.
func (s *Store) Set(_ context.Context, id string, data *session.Data) error {
	if data == nil {
		data = &session.Data{}
	}
	v, err := encode(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(id), v)
	})
}

// Touch replaces the cookie of a live record, extending its expiry.
func (s *Store) Touch(_ context.Context, id string, data *session.Data) error {
	if data == nil {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		current, expired, err := decode(v, time.Now())
		if err != nil || expired {
			return err
		}
		current.Cookie = data.Cookie
		nv, err := encode(current)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), nv)
	})
}

// Destroy removes the record.
func (s *Store) Destroy(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
}

// All returns every live record keyed by id.
func (s *Store) All(_ context.Context) (map[string]*session.Data, error) {
	out := make(map[string]*session.Data)
	now := time.Now()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			data, expired, err := decode(v, now)
			if err != nil || expired {
				return err
			}
			out[string(k)] = data
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len counts live records.
func (s *Store) Len(_ context.Context) (int, error) {
	n := 0
	now := time.Now()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			if !expiredAt(v, now) {
				n++
			}
			return nil
		})
	})
	return n, err
}

// Clear drops and recreates the bucket.
func (s *Store) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(s.bucket) != nil {
			if err := tx.DeleteBucket(s.bucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

// DeleteExpired removes expired records and reports how many were removed.
func (s *Store) DeleteExpired(_ context.Context) (int, error) {
	n := 0
	now := time.Now()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if expiredAt(v, now) {
				expired = append(expired, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	return n, err
}

func encode(data *session.Data) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	v := make([]byte, headerSize, headerSize+len(raw))
	if exp := data.Cookie.Expires(); exp != nil {
		binary.BigEndian.PutUint64(v, uint64(exp.UnixNano()))
	}
	return append(v, raw...), nil
}

func decode(v []byte, now time.Time) (*session.Data, bool, error) {
	if len(v) < headerSize {
		return nil, false, ErrCorruptRecord
	}
	if expiredAt(v, now) {
		return nil, true, nil
	}
	var data session.Data
	if err := json.Unmarshal(v[headerSize:], &data); err != nil {
		return nil, false, errors.Join(ErrCorruptRecord, err)
	}
	return &data, false, nil
}

func expiredAt(v []byte, now time.Time) bool {
	if len(v) < headerSize {
		return false
	}
	exp := int64(binary.BigEndian.Uint64(v[:headerSize]))
	return exp != 0 && exp <= now.UnixNano()
}
