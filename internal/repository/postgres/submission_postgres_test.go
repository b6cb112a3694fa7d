package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"formfill/internal/model"
	"formfill/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var submissionCols = []string{"id", "rate_sheet_name", "workbook_name", "rate_sheet_path", "workbook_path", "rate_sheet_size", "workbook_size", "created_at"}

func TestSubmissionPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSubmissionPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	sub := &model.Submission{
		ID:            "test-uuid",
		RateSheetName: "rates.pdf",
		WorkbookName:  "brokerage.xlsx",
		RateSheetPath: "uploads/test-uuid/rates.pdf",
		WorkbookPath:  "uploads/test-uuid/brokerage.xlsx",
		RateSheetSize: 2048,
		WorkbookSize:  1024,
		CreatedAt:     now,
	}

	rows := sqlmock.NewRows(submissionCols).
		AddRow(sub.ID, sub.RateSheetName, sub.WorkbookName, sub.RateSheetPath, sub.WorkbookPath, sub.RateSheetSize, sub.WorkbookSize, sub.CreatedAt)

	mock.ExpectQuery("INSERT INTO submissions").
		WithArgs(sub.ID, sub.RateSheetName, sub.WorkbookName, sub.RateSheetPath, sub.WorkbookPath, sub.RateSheetSize, sub.WorkbookSize, sub.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, sub)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, sub.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSubmissionPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(submissionCols).
			AddRow("test-id", "rates.pdf", "brokerage.xlsx", "uploads/test-id/rates.pdf", "uploads/test-id/brokerage.xlsx", 2048, 1024, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		sub, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, sub)
		assert.Equal(t, "test-id", sub.ID)
		assert.Equal(t, "rates.pdf", sub.RateSheetName)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		sub, err := repo.FindByID(ctx, "missing")

		assert.Error(t, err)
		assert.True(t, IsNoRowsError(err))
		assert.Nil(t, sub)
	})
}

func TestSubmissionPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSubmissionPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM submissions").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows(submissionCols).
		AddRow("test-id", "rates.pdf", "brokerage.xlsx", "uploads/test-id/rates.pdf", "uploads/test-id/brokerage.xlsx", 2048, 1024, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM submissions ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(rows)

	res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
