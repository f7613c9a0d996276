package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/maltedev/arbitrage-scanner/internal/jobs"
	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/queue"
	"github.com/maltedev/arbitrage-scanner/internal/session"
)

type JobService interface {
	Submit(ctx context.Context, req jobs.Request) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	TakeResults(ctx context.Context, id string) ([]models.Opportunity, error)
}

type Discoverer interface {
	DiscoverCategories(ctx context.Context, max int) []string
}

type SessionStater interface {
	State() session.State
}

type Handlers struct {
	jobs       JobService
	discoverer Discoverer
	session    SessionStater
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewHandlers builds the API handlers. sess may be nil, in which case
// /health does not report the Amazon session state.
func NewHandlers(jobService JobService, discoverer Discoverer, sess SessionStater, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		jobs:       jobService,
		discoverer: discoverer,
		session:    sess,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.With("component", "api"),
	}
}

// FiltersRequest overrides the default filters field by field. An omitted
// avoid_keywords keeps the default list; an empty one disables it.
type FiltersRequest struct {
	MinProfit           *float64 `json:"min_profit" validate:"omitempty,gte=0"`
	MinMargin           *float64 `json:"min_margin" validate:"omitempty,gte=0,lte=1"`
	MinRecentSales      *int     `json:"min_recent_sales" validate:"omitempty,gte=0"`
	FeeRate             *float64 `json:"fee_rate" validate:"omitempty,gte=0,lte=1"`
	FixedFee            *float64 `json:"fixed_fee" validate:"omitempty,gte=0"`
	MaxItemsPerCategory *int     `json:"max_items_per_category" validate:"omitempty,gte=1,lte=200"`
	MaxListingResults   *int     `json:"max_listing_results" validate:"omitempty,gte=1,lte=50"`
	QueryWordCount      *int     `json:"query_word_count" validate:"omitempty,gte=1,lte=30"`
	AvoidKeywords       []string `json:"avoid_keywords" validate:"omitempty,dive,max=100"`
}

func (f FiltersRequest) toFilters() models.Filters {
	out := models.DefaultFilters()
	if f.MinProfit != nil {
		out.MinProfit = decimal.NewFromFloat(*f.MinProfit)
	}
	if f.MinMargin != nil {
		out.MinMargin = decimal.NewFromFloat(*f.MinMargin)
	}
	if f.MinRecentSales != nil {
		out.MinRecentSales = *f.MinRecentSales
	}
	if f.FeeRate != nil {
		out.FeeRate = decimal.NewFromFloat(*f.FeeRate)
	}
	if f.FixedFee != nil {
		out.FixedFee = decimal.NewFromFloat(*f.FixedFee)
	}
	if f.MaxItemsPerCategory != nil {
		out.MaxItemsPerCategory = *f.MaxItemsPerCategory
	}
	if f.MaxListingResults != nil {
		out.MaxListingResults = *f.MaxListingResults
	}
	if f.QueryWordCount != nil {
		out.QueryWordCount = *f.QueryWordCount
	}
	if f.AvoidKeywords != nil {
		out.AvoidKeywords = cleanList(f.AvoidKeywords)
	}
	return out
}

// CreateScanRequest starts a scan. Without categories, up to
// max_categories are discovered first.
type CreateScanRequest struct {
	Categories    []string       `json:"categories" validate:"omitempty,max=50,dive,url"`
	MaxCategories int            `json:"max_categories" validate:"omitempty,gte=1,lte=50"`
	Filters       FiltersRequest `json:"filters"`
}

type CreateScanResponse struct {
	ScanID  string      `json:"scan_id"`
	Status  jobs.Status `json:"status"`
	Message string      `json:"message"`
}

type DiscoverRequest struct {
	MaxCategories int `json:"max_categories" validate:"omitempty,gte=1,lte=50"`
}

type DiscoverResponse struct {
	Categories []string `json:"categories"`
}

type ResultsResponse struct {
	ScanID  string               `json:"scan_id"`
	Count   int                  `json:"count"`
	Results []models.Opportunity `json:"results"`
}

// DiscoverCategories lists best-seller category URLs.
func (h *Handlers) DiscoverCategories(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MaxCategories == 0 {
		req.MaxCategories = jobs.DefaultMaxCategories
	}

	categories := h.discoverer.DiscoverCategories(r.Context(), req.MaxCategories)
	h.respondJSON(w, http.StatusOK, DiscoverResponse{Categories: categories})
}

// CreateScan queues a scan job.
func (h *Handlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req CreateScanRequest
	if !h.decode(w, r, &req) {
		return
	}

	job, err := h.jobs.Submit(r.Context(), jobs.Request{
		Categories:    cleanList(req.Categories),
		MaxCategories: req.MaxCategories,
		Filters:       req.Filters.toFilters(),
	})
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrInvalidRequest):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrQueueFull):
			h.respondError(w, http.StatusServiceUnavailable, "too many scans queued, try again later")
		default:
			h.logger.Error("failed to create scan", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to create scan")
		}
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateScanResponse{
		ScanID:  job.ID,
		Status:  job.Status,
		Message: "Scan queued",
	})
}

// GetScan reports the status of a scan.
func (h *Handlers) GetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	job, err := h.jobs.Get(r.Context(), scanID)
	if err != nil {
		h.respondJobError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// GetScanResults hands over the rows of a completed scan. They can be
// fetched once.
func (h *Handlers) GetScanResults(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	rows, err := h.jobs.TakeResults(r.Context(), scanID)
	if err != nil {
		h.respondJobError(w, err)
		return
	}
	if rows == nil {
		rows = []models.Opportunity{}
	}

	h.respondJSON(w, http.StatusOK, ResultsResponse{ScanID: scanID, Count: len(rows), Results: rows})
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	health := map[string]any{"status": "ok"}
	if h.session != nil {
		health["amazon_session"] = h.session.State().String()
	}
	h.respondJSON(w, http.StatusOK, health)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	// An empty body means all defaults.
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.StructCtx(r.Context(), dest); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *Handlers) respondJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		h.respondError(w, http.StatusNotFound, "scan not found")
	case errors.Is(err, jobs.ErrResultsNotReady):
		h.respondError(w, http.StatusConflict, "scan has not finished")
	case errors.Is(err, jobs.ErrResultsCollected):
		h.respondError(w, http.StatusGone, "results already collected or expired")
	case errors.Is(err, jobs.ErrJobFailed):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("scan lookup failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	})
	return "validation error: " + strings.Join(fields, "; ")
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(in []string) []string {
	trimmed := lo.Map(in, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(trimmed))
}
