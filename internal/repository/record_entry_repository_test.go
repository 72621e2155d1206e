package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

var entryRowColumns = []string{"id", "format_id", "nombre", "fecha_realizacion", "file_name", "file_size", "mime_type", "file_path", "uploaded_by", "uploaded_at", "status", "approved_by", "approved_at", "notes"}

func TestRecordEntryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordEntryRepository(db)

	mock.ExpectExec("INSERT INTO record_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.RecordEntry{FormatID: "f1", Nombre: "Inspeccion marzo", FechaRealizacion: time.Now()}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, models.EntryPending, entry.Status)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEntryDecideLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordEntryRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM record_entries WHERE id = \$1 FOR UPDATE`).WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("e1", "f1", "Inspeccion", now, "a.pdf", 10, "application/pdf", nil, "u1", now, "pending", nil, nil, nil))
	mock.ExpectExec(`UPDATE record_entries SET status = .*`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.Decide(context.Background(), "e1", func(e *models.RecordEntry) error {
		e.Status = models.EntryApproved
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntryApproved, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEntryListFiltersByFormats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordEntryRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM record_entries WHERE format_id = ANY\(\$1\) AND status = \$2`).
		WithArgs(sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("e1", "f1", "Inspeccion", now, "a.pdf", 10, "application/pdf", nil, "u1", now, "pending", nil, nil, nil))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM record_entries WHERE`).
		WithArgs(sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.RecordEntryFilter{FormatIDs: []string{"f1"}, Status: models.EntryPending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEntryCountPendingByFormat(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordEntryRepository(db)

	counts, err := repo.CountPendingByFormat(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)

	mock.ExpectQuery(`SELECT format_id, COUNT\(\*\) AS count FROM record_entries WHERE status = \$1 AND format_id = ANY\(\$2\) GROUP BY format_id`).
		WithArgs("pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"format_id", "count"}).AddRow("f1", 3).AddRow("f2", 1))

	counts, err = repo.CountPendingByFormat(context.Background(), []string{"f1", "f2", "f3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"f1": 3, "f2": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
