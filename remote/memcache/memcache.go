package memcache

import (
	"context"
	"errors"
	"time"

	mc "github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/tiercache/remote"
)

// Store backs the remote tier with memcached. TTLs are rounded up to whole
// seconds - memcached's expiration granularity. Memcached cannot enumerate
// keys, so prefix purge is unsupported.
type Store struct {
	mc *mc.Client
}

var _ remote.Store = (*Store)(nil)

func New(servers ...string) (*Store, error) {
	if len(servers) == 0 {
		return nil, errors.New("memcache remote: no servers")
	}
	return &Store{mc: mc.New(servers...)}, nil
}

// NewWithClient wraps an existing client, e.g. one with custom timeouts or
// a custom ServerSelector.
func NewWithClient(client *mc.Client) *Store { return &Store{mc: client} }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := s.mc.Get(key)
	if err == mc.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int32
	if ttl > 0 {
		exp = int32((ttl + time.Second - 1) / time.Second)
	}
	return s.mc.Set(&mc.Item{Key: key, Value: value, Expiration: exp})
}

func (s *Store) Del(_ context.Context, key string) error {
	if err := s.mc.Delete(key); err != nil && err != mc.ErrCacheMiss {
		return err
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.mc.Close()
}
