package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"reportapi/internal/model"
	"reportapi/internal/repository"
	"reportapi/internal/storage"
)

// RetentionPolicy decides when a report is reclaimable and performs the
// reclamation. The window is a single global duration fixed at process start;
// reports are never retained on a per-report basis.
type RetentionPolicy struct {
	store  storage.Storage
	repo   repository.ReportRepository
	window time.Duration
}

// NewRetentionPolicy constructs a RetentionPolicy with the given window.
func NewRetentionPolicy(store storage.Storage, repo repository.ReportRepository, window time.Duration) *RetentionPolicy {
	return &RetentionPolicy{store: store, repo: repo, window: window}
}

// Window returns the configured retention window.
func (p *RetentionPolicy) Window() time.Duration {
	return p.window
}

// ExpiryOf returns the instant a report created at createdAt stops being
// retrievable.
func (p *RetentionPolicy) ExpiryOf(createdAt time.Time) time.Time {
	return createdAt.Add(p.window)
}

// IsExpired reports whether rep is reclaimable at the given instant.
func (p *RetentionPolicy) IsExpired(rep *model.Report, now time.Time) bool {
	return !now.Before(rep.ExpiresAt)
}

// Reclaim permanently removes every report whose expiry is at or before now
// and returns the number removed. Zero matches is a normal outcome, not an
// error. The metadata rows go first in a single statement; the payload objects
// are then removed best-effort.
func (p *RetentionPolicy) Reclaim(ctx context.Context, now time.Time) (int, error) {
	deleted, err := p.repo.DeleteExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired reports: %w", err)
	}

	for _, d := range deleted {
		for _, key := range []string{d.RenderedKey, d.SourceKey} {
			if key == "" {
				continue
			}
			if err := p.store.Delete(ctx, key); err != nil {
				logEvent("error", "artifact_delete_failed", map[string]any{"report_id": d.ID, "object_key": key, "error": err.Error()})
			}
		}
	}

	logEvent("info", "retention_reclaimed", map[string]any{"deleted_count": len(deleted)})
	return len(deleted), nil
}

// logEvent writes a one-line JSON log entry, matching the request logger's
// output format.
func logEvent(level, event string, fields map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": "service",
		"event":     event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
