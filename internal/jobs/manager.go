package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/arbitrage-scanner/internal/events"
	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/queue"
)

const DefaultMaxCategories = 8

// Scanner runs the comparison. *scraper.Scraper satisfies it.
type Scanner interface {
	DiscoverCategories(ctx context.Context, max int) []string
	FindOpportunities(ctx context.Context, categories []string, filters models.Filters) ([]models.Opportunity, error)
}

// Manager accepts scan requests and runs them one at a time on a worker,
// since every scan shares the single Amazon session.
type Manager struct {
	store     Store
	queue     queue.Queue
	scanner   Scanner
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(store Store, q queue.Queue, scanner Scanner, publisher events.Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &Manager{
		store:     store,
		queue:     q,
		scanner:   scanner,
		publisher: publisher,
		logger:    logger.With("component", "job_manager"),
		now:       time.Now,
	}
}

// Submit records a pending job and queues it.
func (m *Manager) Submit(ctx context.Context, req Request) (*Job, error) {
	if err := req.Filters.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(req.Categories) == 0 && req.MaxCategories < 1 {
		req.MaxCategories = DefaultMaxCategories
	}

	job := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    StatusPending,
		CreatedAt: m.now(),
	}
	if err := m.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := m.queue.Push(&queue.Task{JobID: job.ID, CreatedAt: job.CreatedAt}); err != nil {
		m.finish(ctx, job, nil, err)
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "categories", len(req.Categories), "max_categories", req.MaxCategories)
	return job, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.GetJob(ctx, id)
}

// TakeResults hands over the rows of a completed job. The rows are removed
// from the store, so a second call fails with ErrResultsCollected.
func (m *Manager) TakeResults(ctx context.Context, id string) ([]models.Opportunity, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case StatusCompleted:
		return m.store.TakeResults(ctx, id)
	case StatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
	default:
		return nil, ErrResultsNotReady
	}
}

// StartWorker processes queued jobs until ctx is done or the queue closes.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && ctx.Err() == nil {
				m.logger.Error("failed to take next job", "error", err)
			}
			m.logger.Info("job worker stopping")
			return
		}
		m.process(ctx, task.JobID)
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		m.logger.Error("queued job vanished", "id", id, "error", err)
		return
	}

	started := m.now()
	job.Status = StatusRunning
	job.StartedAt = &started
	if err := m.store.SaveJob(ctx, job); err != nil {
		m.logger.Error("failed to update job status", "id", id, "error", err)
	}

	m.logger.Info("processing job", "id", id)

	categories := job.Request.Categories
	if len(categories) == 0 {
		categories = m.scanner.DiscoverCategories(ctx, job.Request.MaxCategories)
	}
	job.Categories = categories

	rows, err := m.scanner.FindOpportunities(ctx, categories, job.Request.Filters)
	if err == nil {
		err = m.store.SaveResults(ctx, id, rows)
	}
	m.finish(ctx, job, rows, err)
}

func (m *Manager) finish(ctx context.Context, job *Job, rows []models.Opportunity, err error) {
	completed := m.now()
	job.CompletedAt = &completed

	event := &events.ScanEvent{JobID: job.ID, Categories: len(job.Categories)}
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		event.EventType = events.EventTypeScanFailed
		event.Error = job.Error
		m.logger.Error("job failed", "id", job.ID, "error", err)
	} else {
		job.Status = StatusCompleted
		job.Opportunities = len(rows)
		event.EventType = events.EventTypeScanCompleted
		event.Opportunities = len(rows)
		m.logger.Info("job completed", "id", job.ID, "opportunities", len(rows))
	}

	// The scan ctx may already be cancelled; the final state must still land.
	saveCtx := context.WithoutCancel(ctx)
	if err := m.store.SaveJob(saveCtx, job); err != nil {
		m.logger.Error("failed to save job", "id", job.ID, "error", err)
	}
	if err := m.publisher.Publish(saveCtx, event); err != nil {
		m.logger.Warn("failed to publish scan event", "id", job.ID, "error", err)
	}
}
