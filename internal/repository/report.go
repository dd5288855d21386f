package repository

import (
	"context"
	"time"

	"reportapi/internal/model"
)

// ReportRepository defines data access for report metadata using SQL queries only.
// No business logic here — strictly persistence operations. Ownership checks and
// object-storage bookkeeping are composed on top in the service layer.
type ReportRepository interface {
	// Create inserts a new report record.
	// The caller provides all fields (ID, timestamps included); nothing is DB-generated.
	// Returns the stored report.
	Create(ctx context.Context, rep *model.Report) (*model.Report, error)

	// FindByID returns a report by its ID, regardless of owner.
	FindByID(ctx context.Context, id string) (*model.Report, error)

	// ListByOwner returns metadata for every report owned by ownerID, newest first,
	// ties broken by id ascending. A non-empty search narrows to reports whose
	// ticker or company name contains the term, case-insensitively.
	ListByOwner(ctx context.Context, ownerID, search string) ([]model.Report, error)

	// Delete removes a report row by ID and returns how many rows were affected
	// (0 when the report was already gone — not an error).
	Delete(ctx context.Context, id string) (int64, error)

	// DeleteExpiredBefore removes every report whose expires_at is at or before
	// cutoff and returns the object keys of the deleted rows so the caller can
	// reclaim the payloads.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) ([]DeletedReport, error)
}

// DeletedReport carries what remains of a bulk-deleted row: enough to remove
// its payload objects from storage.
type DeletedReport struct {
	ID          string
	RenderedKey string
	SourceKey   string
}
