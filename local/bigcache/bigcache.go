package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tiercache/local"
)

// Store backs the local tier with BigCache. BigCache has no per-entry TTL:
// every entry lives for the configured LifeWindow, so the per-call TTL is
// ignored. Suitable when every Resolve uses the same local lifetime.
type Store struct {
	c *bc.BigCache
}

var (
	_ local.Store         = (*Store)(nil)
	_ local.PrefixDeleter = (*Store)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	return true, s.c.Set(key, value)
}

func (s *Store) Del(_ context.Context, key string) error {
	if err := s.c.Delete(key); err != nil && err != bc.ErrEntryNotFound {
		return err
	}
	return nil
}

// DelPrefix walks the cache and removes matching entries. Collects keys
// first: deleting while iterating would race the iterator's shard walk.
func (s *Store) DelPrefix(_ context.Context, prefix string) error {
	var keys []string
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue
		}
		if strings.HasPrefix(e.Key(), prefix) {
			keys = append(keys, e.Key())
		}
	}
	for _, k := range keys {
		if err := s.c.Delete(k); err != nil && err != bc.ErrEntryNotFound {
			return err
		}
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
