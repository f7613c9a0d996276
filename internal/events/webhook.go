package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// WebhookHandler posts each event as JSON to url. A non-2xx reply is an
// error, so the event is delivered again later.
func WebhookHandler(client *http.Client, url string, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scan_webhook")

	return func(ctx context.Context, event *ScanEvent) error {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call webhook: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}

		logger.Info("scan event delivered", "job_id", event.JobID, "type", event.EventType)
		return nil
	}
}

// LogHandler only logs events.
func LogHandler(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scan_events")

	return func(_ context.Context, event *ScanEvent) error {
		logger.Info("scan event received",
			"job_id", event.JobID,
			"type", event.EventType,
			"categories", event.Categories,
			"opportunities", event.Opportunities,
			"error", event.Error,
		)
		return nil
	}
}
