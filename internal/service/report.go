package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"reportapi/internal/model"
	"reportapi/internal/repository"
	"reportapi/internal/storage"
)

var (
	ErrOwnerRequired             = errors.New("owner id is required")
	ErrIDRequired                = errors.New("report id is required")
	ErrTickerRequired            = errors.New("ticker is required")
	ErrNoArtifacts               = errors.New("at least one of rendered or source payload is required")
	ErrInvalidRecommendation     = errors.New("recommendation must be BUY, SELL or HOLD")
	ErrInvalidScore              = errors.New("overall score must be between 0 and 100")
	ErrReportNotFound            = errors.New("report not found")
	ErrRepresentationUnavailable = errors.New("requested representation was not generated for this report")
)

// SaveReportInput is the completed-analysis handoff from the analysis engine.
// Rendered and Source are optional, but at least one must be present.
type SaveReportInput struct {
	OwnerID        string
	Ticker         string
	CompanyName    string
	OverallScore   float64
	Recommendation model.Recommendation
	ModelUsed      string
	Rendered       io.Reader
	RenderedSize   int64
	Source         io.Reader
	SourceSize     int64
}

// ReportListResult is the service-level DTO for a user's report history.
type ReportListResult struct {
	Items []model.Report `json:"data"`
	Total int            `json:"total"`
}

// ReportContent is an opened artifact ready to stream to the consumer.
// ContentType always matches the requested representation, never the other one.
type ReportContent struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Filename    string
}

// ReportService defines the use cases for report artifacts. Every read and
// delete takes the requester's identity and only ever exposes reports the
// requester owns; a foreign report is indistinguishable from a missing one.
type ReportService interface {
	// Save persists a completed analysis: payloads go to object storage, the
	// metadata row to the database, with storage rolled back if the row insert
	// fails. Expiry is derived from the creation time and the retention window.
	Save(ctx context.Context, in SaveReportInput) (*model.Report, error)

	// Get returns a single report owned by requesterID.
	Get(ctx context.Context, requesterID, id string) (*model.Report, error)

	// List returns the requester's reports, newest first, optionally narrowed
	// by a case-insensitive substring match on ticker/company name. Metadata
	// only, never payload bytes.
	List(ctx context.Context, requesterID, search string) (*ReportListResult, error)

	// Open returns a streaming reader over the requested representation.
	// Retrieval is a pure read: no counters, no mutation.
	Open(ctx context.Context, requesterID, id string, rep model.Representation) (*ReportContent, error)

	// Delete permanently removes one report owned by requesterID.
	Delete(ctx context.Context, requesterID, id string) error

	// DeleteAll permanently removes every report owned by requesterID,
	// best-effort per report, and returns the number actually deleted.
	DeleteAll(ctx context.Context, requesterID string) (int, error)
}

// reportService is a concrete implementation of ReportService.
type reportService struct {
	store  storage.Storage
	repo   repository.ReportRepository
	window time.Duration
	now    func() time.Time
}

// NewReportService constructs a new ReportService with the given retention window.
func NewReportService(store storage.Storage, repo repository.ReportRepository, window time.Duration) ReportService {
	return &reportService{store: store, repo: repo, window: window, now: time.Now}
}

func (s *reportService) Save(ctx context.Context, in SaveReportInput) (*model.Report, error) {
	if in.OwnerID == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(in.Ticker) == "" {
		return nil, ErrTickerRequired
	}
	if in.Rendered == nil && in.Source == nil {
		return nil, ErrNoArtifacts
	}
	if !in.Recommendation.Valid() {
		return nil, ErrInvalidRecommendation
	}
	if in.OverallScore < 0 || in.OverallScore > 100 {
		return nil, ErrInvalidScore
	}

	id := uuid.New().String()
	createdAt := s.now().UTC()

	rep := &model.Report{
		ID:             id,
		OwnerID:        in.OwnerID,
		Ticker:         strings.ToUpper(strings.TrimSpace(in.Ticker)),
		CompanyName:    in.CompanyName,
		OverallScore:   in.OverallScore,
		Recommendation: in.Recommendation,
		ModelUsed:      in.ModelUsed,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(s.window),
	}

	var uploaded []string
	rollback := func() {
		for _, key := range uploaded {
			if err := s.store.Delete(ctx, key); err != nil {
				logEvent("error", "report_rollback_failed", map[string]any{"object_key": key, "error": err.Error()})
			}
		}
	}

	if in.Rendered != nil {
		key := artifactKey(id, model.RepresentationRendered)
		info, err := s.store.Put(ctx, key, in.Rendered, storage.PutObjectOptions{
			Size:        in.RenderedSize,
			ContentType: model.RepresentationRendered.ContentType(),
			Metadata:    map[string]string{"ticker": rep.Ticker},
		})
		if err != nil {
			return nil, fmt.Errorf("upload rendered artifact: %w", err)
		}
		uploaded = append(uploaded, key)
		rep.RenderedKey = key
		rep.Size = info.Size
	}

	if in.Source != nil {
		key := artifactKey(id, model.RepresentationSource)
		info, err := s.store.Put(ctx, key, in.Source, storage.PutObjectOptions{
			Size:        in.SourceSize,
			ContentType: model.RepresentationSource.ContentType(),
			Metadata:    map[string]string{"ticker": rep.Ticker},
		})
		if err != nil {
			rollback()
			return nil, fmt.Errorf("upload source artifact: %w", err)
		}
		uploaded = append(uploaded, key)
		rep.SourceKey = key
		if rep.Size == 0 {
			// Display size falls back to the source artifact when no rendered
			// document was produced.
			rep.Size = info.Size
		}
	}

	stored, err := s.repo.Create(ctx, rep)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// Get returns a report by ID if and only if the requester owns it.
func (s *reportService) Get(ctx context.Context, requesterID, id string) (*model.Report, error) {
	return s.getOwned(ctx, requesterID, id)
}

// List returns the requester's report history, metadata only.
func (s *reportService) List(ctx context.Context, requesterID, search string) (*ReportListResult, error) {
	if requesterID == "" {
		return nil, ErrOwnerRequired
	}
	items, err := s.repo.ListByOwner(ctx, requesterID, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	return &ReportListResult{Items: items, Total: len(items)}, nil
}

// Open resolves the requested representation to a byte stream. A missing
// representation is an explicit error; the other representation is never
// substituted.
func (s *reportService) Open(ctx context.Context, requesterID, id string, repn model.Representation) (*ReportContent, error) {
	rep, err := s.getOwned(ctx, requesterID, id)
	if err != nil {
		return nil, err
	}

	var key string
	switch repn {
	case model.RepresentationRendered:
		key = rep.RenderedKey
	case model.RepresentationSource:
		key = rep.SourceKey
	}
	if key == "" {
		return nil, ErrRepresentationUnavailable
	}

	body, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	return &ReportContent{
		Body:        body,
		Size:        info.Size,
		ContentType: repn.ContentType(),
		Filename:    attachmentFilename(rep, repn),
	}, nil
}

// Delete removes a single owned report: the metadata row first, so the report
// becomes not-found atomically, then its payload objects.
func (s *reportService) Delete(ctx context.Context, requesterID, id string) error {
	rep, err := s.getOwned(ctx, requesterID, id)
	if err != nil {
		return err
	}
	// A zero row count means a concurrent delete (user or reclamation) won the
	// race; the report is gone either way.
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete report row: %w", err)
	}
	s.removeArtifacts(ctx, rep.RenderedKey, rep.SourceKey)
	return nil
}

// DeleteAll removes every report owned by requesterID. One report's failure
// does not abort the rest; the returned count reflects rows actually deleted.
func (s *reportService) DeleteAll(ctx context.Context, requesterID string) (int, error) {
	if requesterID == "" {
		return 0, ErrOwnerRequired
	}
	items, err := s.repo.ListByOwner(ctx, requesterID, "")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range items {
		rep := &items[i]
		n, err := s.repo.Delete(ctx, rep.ID)
		if err != nil {
			logEvent("error", "report_delete_failed", map[string]any{"report_id": rep.ID, "error": err.Error()})
			continue
		}
		if n == 0 {
			continue
		}
		deleted += int(n)
		s.removeArtifacts(ctx, rep.RenderedKey, rep.SourceKey)
	}
	return deleted, nil
}

// getOwned is the single authorization point for every read and delete path.
// A report owned by someone else yields the same ErrReportNotFound as a
// missing one, so existence of foreign reports never leaks.
func (s *reportService) getOwned(ctx context.Context, requesterID, id string) (*model.Report, error) {
	if requesterID == "" {
		return nil, ErrOwnerRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	rep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if rep.OwnerID != requesterID {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

// removeArtifacts best-effort deletes payload objects after their row is gone.
// Failures leave orphaned objects that no request can reach; they are logged
// rather than surfaced, since the report itself was deleted successfully.
func (s *reportService) removeArtifacts(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			logEvent("error", "artifact_delete_failed", map[string]any{"object_key": key, "error": err.Error()})
		}
	}
}

func artifactKey(id string, repn model.Representation) string {
	return fmt.Sprintf("reports/%s.%s", id, repn.Ext())
}

// attachmentFilename derives the download name deterministically from the
// ticker, the creation date and the representation extension.
func attachmentFilename(rep *model.Report, repn model.Representation) string {
	return fmt.Sprintf("%s_%s.%s", rep.Ticker, rep.CreatedAt.Format("2006-01-02"), repn.Ext())
}
