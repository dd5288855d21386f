package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"reportapi/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var reportCols = []string{
	"id", "owner_id", "ticker", "company_name", "overall_score", "recommendation",
	"model_used", "rendered_key", "source_key", "size", "created_at", "expires_at",
}

func TestReportPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewReportPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	rep := &model.Report{
		ID:             "test-uuid",
		OwnerID:        "owner-uuid",
		Ticker:         "AAPL",
		CompanyName:    "Apple Inc.",
		OverallScore:   82.5,
		Recommendation: model.RecommendationBuy,
		ModelUsed:      "deepseek/deepseek-chat",
		RenderedKey:    "reports/test-uuid.pdf",
		Size:           2048,
		CreatedAt:      now,
		ExpiresAt:      now.Add(5 * 24 * time.Hour),
	}

	rows := sqlmock.NewRows(reportCols).
		AddRow(rep.ID, rep.OwnerID, rep.Ticker, rep.CompanyName, rep.OverallScore,
			string(rep.Recommendation), rep.ModelUsed, rep.RenderedKey, nil,
			rep.Size, rep.CreatedAt, rep.ExpiresAt)

	mock.ExpectQuery("INSERT INTO reports").
		WithArgs(rep.ID, rep.OwnerID, rep.Ticker, rep.CompanyName, rep.OverallScore,
			string(rep.Recommendation), rep.ModelUsed, rep.RenderedKey, nil,
			rep.Size, rep.CreatedAt, rep.ExpiresAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, rep)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, rep.ID, result.ID)
	assert.True(t, result.HasRendered())
	assert.False(t, result.HasSource())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewReportPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(reportCols).
			AddRow("test-id", "owner-1", "MSFT", "Microsoft", 74.0, "HOLD",
				"deepseek/deepseek-chat", "reports/test-id.pdf", "reports/test-id.tex",
				4096, now, now.Add(24*time.Hour))

		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		rep, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, rep)
		assert.Equal(t, "test-id", rep.ID)
		assert.Equal(t, model.RecommendationHold, rep.Recommendation)
		assert.True(t, rep.HasSource())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		rep, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, rep)
	})
}

func TestReportPostgres_ListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewReportPostgres(db)
	ctx := context.Background()

	t.Run("no search term", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(reportCols).
			AddRow("id-1", "owner-1", "AAPL", "Apple Inc.", 82.5, "BUY",
				"deepseek/deepseek-chat", "reports/id-1.pdf", nil, 2048, now, now.Add(time.Hour)).
			AddRow("id-2", "owner-1", "TSLA", "Tesla, Inc.", 41.0, "SELL",
				"deepseek/deepseek-chat", nil, "reports/id-2.tex", 512, now.Add(-time.Hour), now.Add(time.Hour))

		mock.ExpectQuery("SELECT (.+) FROM reports WHERE owner_id = (.+) ORDER BY created_at DESC, id ASC").
			WithArgs("owner-1", "").
			WillReturnRows(rows)

		items, err := repo.ListByOwner(ctx, "owner-1", "")

		assert.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, "id-1", items[0].ID)
		assert.False(t, items[1].HasRendered())
	})

	t.Run("with search term", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE owner_id = (.+)").
			WithArgs("owner-1", "apple").
			WillReturnRows(sqlmock.NewRows(reportCols))

		items, err := repo.ListByOwner(ctx, "owner-1", "apple")

		assert.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestReportPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewReportPostgres(db)
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM reports WHERE id = ?").
			WithArgs("test-id").
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := repo.Delete(ctx, "test-id")

		assert.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("already gone", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM reports WHERE id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := repo.Delete(ctx, "missing")

		assert.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportPostgres_DeleteExpiredBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewReportPostgres(db)
	ctx := context.Background()
	cutoff := time.Now()

	t.Run("expired rows returned with keys", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "rendered_key", "source_key"}).
			AddRow("id-1", "reports/id-1.pdf", "reports/id-1.tex").
			AddRow("id-2", nil, "reports/id-2.tex")

		mock.ExpectQuery("DELETE FROM reports WHERE expires_at <= (.+) RETURNING").
			WithArgs(cutoff).
			WillReturnRows(rows)

		deleted, err := repo.DeleteExpiredBefore(ctx, cutoff)

		assert.NoError(t, err)
		assert.Len(t, deleted, 2)
		assert.Equal(t, "reports/id-1.pdf", deleted[0].RenderedKey)
		assert.Empty(t, deleted[1].RenderedKey)
		assert.Equal(t, "reports/id-2.tex", deleted[1].SourceKey)
	})

	t.Run("nothing expired", func(t *testing.T) {
		mock.ExpectQuery("DELETE FROM reports WHERE expires_at <= (.+) RETURNING").
			WithArgs(cutoff).
			WillReturnRows(sqlmock.NewRows([]string{"id", "rendered_key", "source_key"}))

		deleted, err := repo.DeleteExpiredBefore(ctx, cutoff)

		assert.NoError(t, err)
		assert.Empty(t, deleted)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
