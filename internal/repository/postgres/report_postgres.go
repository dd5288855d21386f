package postgres

import (
	"context"
	"database/sql"
	"time"

	"reportapi/internal/model"
	"reportapi/internal/repository"
)

// ReportPostgres is a PostgreSQL implementation of repository.ReportRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ReportPostgres struct {
	db *sql.DB
}

// NewReportPostgres creates a new ReportPostgres repository.
func NewReportPostgres(db *sql.DB) *ReportPostgres {
	return &ReportPostgres{db: db}
}

var _ repository.ReportRepository = (*ReportPostgres)(nil)

const reportColumns = `id, owner_id, ticker, company_name, overall_score, recommendation, model_used, rendered_key, source_key, size, created_at, expires_at`

// Create inserts a new report row and returns the stored record.
func (r *ReportPostgres) Create(ctx context.Context, rep *model.Report) (*model.Report, error) {
	const q = `
		INSERT INTO reports (id, owner_id, ticker, company_name, overall_score, recommendation, model_used, rendered_key, source_key, size, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + reportColumns
	row := r.db.QueryRowContext(ctx, q,
		rep.ID,
		rep.OwnerID,
		rep.Ticker,
		rep.CompanyName,
		rep.OverallScore,
		string(rep.Recommendation),
		rep.ModelUsed,
		nullIfEmpty(rep.RenderedKey),
		nullIfEmpty(rep.SourceKey),
		rep.Size,
		rep.CreatedAt,
		rep.ExpiresAt,
	)
	return scanReport(row)
}

// FindByID fetches a single report by its ID.
func (r *ReportPostgres) FindByID(ctx context.Context, id string) (*model.Report, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1
	`
	return scanReport(r.db.QueryRowContext(ctx, q, id))
}

// ListByOwner returns all reports owned by ownerID, newest first with id as the
// deterministic tiebreaker. search filters on ticker/company name via ILIKE.
func (r *ReportPostgres) ListByOwner(ctx context.Context, ownerID, search string) ([]model.Report, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE owner_id = $1
		  AND ($2 = '' OR ticker ILIKE '%' || $2 || '%' OR company_name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a report row by ID and reports how many rows were affected.
func (r *ReportPostgres) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM reports WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredBefore removes every row with expires_at <= cutoff in a single
// statement and returns the object keys of the deleted rows.
func (r *ReportPostgres) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) ([]repository.DeletedReport, error) {
	const q = `
		DELETE FROM reports
		WHERE expires_at <= $1
		RETURNING id, rendered_key, source_key
	`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deleted := make([]repository.DeletedReport, 0)
	for rows.Next() {
		var (
			d        repository.DeletedReport
			rendered sql.NullString
			source   sql.NullString
		)
		if err := rows.Scan(&d.ID, &rendered, &source); err != nil {
			return nil, err
		}
		d.RenderedKey = rendered.String
		d.SourceKey = source.String
		deleted = append(deleted, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var (
		rep      model.Report
		rec      string
		rendered sql.NullString
		source   sql.NullString
	)
	if err := row.Scan(
		&rep.ID,
		&rep.OwnerID,
		&rep.Ticker,
		&rep.CompanyName,
		&rep.OverallScore,
		&rec,
		&rep.ModelUsed,
		&rendered,
		&source,
		&rep.Size,
		&rep.CreatedAt,
		&rep.ExpiresAt,
	); err != nil {
		return nil, err
	}
	rep.Recommendation = model.Recommendation(rec)
	rep.RenderedKey = rendered.String
	rep.SourceKey = source.String
	return &rep, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
