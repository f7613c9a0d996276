package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

// Store keeps job state and hands results over exactly once. Nothing is
// kept past the TTL.
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	SaveResults(ctx context.Context, id string, rows []models.Opportunity) error
	// TakeResults returns and deletes the results of a job.
	TakeResults(ctx context.Context, id string) ([]models.Opportunity, error)
}

type entry[T any] struct {
	value   T
	expires time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	jobs    map[string]entry[Job]
	results map[string]entry[[]models.Opportunity]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		jobs:    make(map[string]entry[Job]),
		results: make(map[string]entry[[]models.Opportunity]),
	}
}

func (s *MemoryStore) SaveJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = entry[Job]{value: *job, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok || s.expired(e.expires) {
		delete(s.jobs, id)
		return nil, ErrJobNotFound
	}
	job := e.value
	return &job, nil
}

func (s *MemoryStore) SaveResults(_ context.Context, id string, rows []models.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[id] = entry[[]models.Opportunity]{value: rows, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) TakeResults(_ context.Context, id string) ([]models.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.results[id]
	delete(s.results, id)
	if !ok || s.expired(e.expires) {
		return nil, ErrResultsCollected
	}
	return e.value, nil
}

// Sweep drops expired entries.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.jobs {
		if s.expired(e.expires) {
			delete(s.jobs, id)
		}
	}
	for id, e := range s.results {
		if s.expired(e.expires) {
			delete(s.results, id)
		}
	}
}

func (s *MemoryStore) expired(t time.Time) bool {
	return s.ttl > 0 && s.now().After(t)
}
