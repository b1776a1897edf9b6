package jobs

import (
	"context"
	"sync"
	"time"

	"Vedit/apperr"
	"Vedit/model"
)

const defaultSweepInterval = 30 * time.Second

type entry struct {
	job     model.Job
	expires time.Time
}

// MemoryStore is a process-local Store. Expired entries are hidden on read
// and removed by a background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now   func() time.Time
	sweep time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// WithSweepInterval sets how often expired entries are purged. Non-positive
// values keep the default.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.sweep = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	o := memoryOptions{now: time.Now, sweep: defaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sweep <= 0 {
		o.sweep = defaultSweepInterval
	}
	s := &MemoryStore{
		entries: make(map[string]entry),
		now:     o.now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor(o.sweep)
	return s
}

func (s *MemoryStore) Begin(_ context.Context, key string, job model.Job, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	s.entries[key] = entry{job: job, expires: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Claim(_ context.Context, key string, job model.Job, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) && !e.job.Status.IsTerminal() {
		return false, nil
	}
	s.entries[key] = entry{job: job, expires: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, job model.Job, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = entry{job: job, expires: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return model.Job{}, apperr.NotFound("job %s not found", key)
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return model.Job{}, apperr.NotFound("job %s not found", key)
	}
	return e.job, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every expired entry.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}
