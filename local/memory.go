package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero => never expires
}

// Memory is the default local store: a mutex-guarded map with lazy
// TTL-on-read and an optional background sweeper. The sweeper only bounds
// memory; correctness comes from the expiry check on every Get.
type Memory struct {
	clk clock.Clock

	mu      sync.RWMutex
	entries map[string]memoryEntry

	ticker *clock.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	_ Store         = (*Memory)(nil)
	_ PrefixDeleter = (*Memory)(nil)
)

type MemoryConfig struct {
	Clock         clock.Clock   // nil => wall clock
	SweepInterval time.Duration // 0 => no background sweeping
}

func NewMemory(cfg MemoryConfig) *Memory {
	s := &Memory{
		clk:     cfg.Clock,
		entries: make(map[string]memoryEntry),
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	if cfg.SweepInterval > 0 {
		s.ticker = s.clk.Ticker(cfg.SweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.clk.Now()) {
		// expired entries are absent; reclaim lazily
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = s.clk.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: exp}
	s.mu.Unlock()
	return true, nil
}

func (s *Memory) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) DelPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Memory) sweep() {
	now := s.clk.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

func (s *Memory) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}
