package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/tiercache/local"
)

// Store backs the local tier with a ristretto cache. Cost accounting uses
// the encoded entry size; admission may reject writes under pressure, which
// surfaces as ok=false from Set.
//
// Ristretto cannot enumerate keys, so prefix purge is unsupported.
type Store struct {
	c *rc.Cache
}

var _ local.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.c.SetWithTTL(key, value, int64(len(value)), ttl), nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's own metrics (not part of local.Store).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
