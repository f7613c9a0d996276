package jobs

import (
	"errors"
	"time"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrResultsNotReady  = errors.New("results not ready")
	ErrResultsCollected = errors.New("results already collected or expired")
	ErrJobFailed        = errors.New("job failed")
	ErrInvalidRequest   = errors.New("invalid scan request")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one scan. When Categories is empty the categories are
// discovered, up to MaxCategories.
type Request struct {
	Categories    []string       `json:"categories,omitempty"`
	MaxCategories int            `json:"max_categories"`
	Filters       models.Filters `json:"filters"`
}

// Job is the tracked state of a scan.
type Job struct {
	ID            string     `json:"id"`
	Request       Request    `json:"request"`
	Status        Status     `json:"status"`
	Categories    []string   `json:"categories,omitempty"`
	Opportunities int        `json:"opportunities"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
