package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certtrack/internal/model"
	"certtrack/internal/repository"
)

func attachmentColumns() []string {
	return []string{"id", "user_id", "filename", "storage_path", "size", "content_type", "created_at"}
}

func TestAttachmentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attachments")).
		WithArgs("a1", "u1", "cert.pdf", "users/u1/certificates/a1.pdf", int64(1024), "application/pdf", now).
		WillReturnRows(sqlmock.NewRows(attachmentColumns()).
			AddRow("a1", "u1", "cert.pdf", "users/u1/certificates/a1.pdf", int64(1024), "application/pdf", now))

	repo := NewAttachmentPostgres(db)
	out, err := repo.Create(context.Background(), &model.Attachment{
		ID:          "a1",
		UserID:      "u1",
		Filename:    "cert.pdf",
		StoragePath: "users/u1/certificates/a1.pdf",
		Size:        1024,
		ContentType: "application/pdf",
		CreatedAt:   now,
	})

	require.NoError(t, err)
	assert.Equal(t, "users/u1/certificates/a1.pdf", out.StoragePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM attachments")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewAttachmentPostgres(db)
	_, err = repo.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attachments WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("u1", 10, 0).
		WillReturnRows(sqlmock.NewRows(attachmentColumns()).
			AddRow("a2", "u1", "b.pdf", "users/u1/certificates/a2.pdf", int64(2), "application/pdf", now).
			AddRow("a1", "u1", "a.pdf", "users/u1/certificates/a1.pdf", int64(1), "application/pdf", now))

	repo := NewAttachmentPostgres(db)
	res, err := repo.ListByUser(context.Background(), "u1", repository.PageQuery{Limit: 10, Offset: 0})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "a2", res.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attachments WHERE id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAttachmentPostgres(db)
	assert.NoError(t, repo.Delete(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
