package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/remote"
)

var ErrNilClient = errors.New("redis remote: nil client")

// Store backs the remote tier with Redis. A miss is goredis.Nil, reported
// as absence; everything else is a transport/server error.
type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ remote.Store         = (*Store)(nil)
	_ remote.PrefixDeleter = (*Store)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // non-positive TTLs mean "no expiry"
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// DelPrefix removes every key under prefix via SCAN, deleting in batches.
// SCAN keeps the server responsive where KEYS would block it.
func (s *Store) DelPrefix(ctx context.Context, prefix string) error {
	const batchSize = 256
	iter := s.rdb.Scan(ctx, 0, prefix+"*", batchSize).Iterator()
	batch := make([]string, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return flush()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
