package batches

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE batches (
  batch_id TEXT PRIMARY KEY,
  caption TEXT,
  created_at BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE files (
  batch_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  file_ref BIGINT NOT NULL,
  PRIMARY KEY (batch_id, position)
);
`)
	require.NoError(t, err)
	return db
}

func ptr(s string) *string { return &s }

func TestCreateAndGet_PreservesOrderAndDuplicates(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db)
	ctx := context.Background()

	in := &models.Batch{ID: "aaaaaaaaaaaa", Caption: ptr("Vol.1"), Files: []models.FileRef{30, 10, 20, 10}}
	require.NoError(t, r.Create(ctx, in, 1700000000))

	got, err := r.Get(ctx, "aaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	require.NotNil(t, got.Caption)
	assert.Equal(t, "Vol.1", *got.Caption)
	assert.Equal(t, []models.FileRef{30, 10, 20, 10}, got.Files)
}

func TestCreateAndGet_NoCaption(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, &models.Batch{ID: "bbbbbbbbbbbb", Files: []models.FileRef{7}}, 0))

	got, err := r.Get(ctx, "bbbbbbbbbbbb")
	require.NoError(t, err)
	assert.Nil(t, got.Caption)
	assert.False(t, got.HasCaption())
	assert.Equal(t, []models.FileRef{7}, got.Files)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLRepository(setupDB(t))

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreate_DuplicateIDFails(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db)
	ctx := context.Background()

	b := &models.Batch{ID: "cccccccccccc", Files: []models.FileRef{1}}
	require.NoError(t, r.Create(ctx, b, 0))
	require.Error(t, r.Create(ctx, b, 0))
}

func TestExistsAndCount(t *testing.T) {
	db := setupDB(t)
	r := NewSQLRepository(db)
	ctx := context.Background()

	ok, err := r.Exists(ctx, "dddddddddddd")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Create(ctx, &models.Batch{ID: "dddddddddddd", Files: []models.FileRef{1, 2}}, 0))
	require.NoError(t, r.Create(ctx, &models.Batch{ID: "eeeeeeeeeeee", Files: []models.FileRef{3}}, 0))

	ok, err = r.Exists(ctx, "dddddddddddd")
	require.NoError(t, err)
	assert.True(t, ok)

	nb, nf, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nb)
	assert.Equal(t, int64(3), nf)
}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQLRepository(db), mock, db
}

func TestCreate_BatchInsertError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO batches`).WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), &models.Batch{ID: "x", Files: []models.FileRef{1}}, 0)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`failed to insert batch: .*disk full`), err.Error())
}

func TestCreate_FileInsertError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO batches`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO files`).WithArgs("x", 0, int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO files`).WithArgs("x", 1, int64(6)).WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), &models.Batch{ID: "x", Files: []models.FileRef{5, 6}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert file 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_QueryErrors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT caption FROM batches`).WithArgs("x").WillReturnError(errors.New("db err"))
	_, err := repo.Get(context.Background(), "x")
	assert.Regexp(t, `failed to select batch: .*db err`, err.Error())

	mock.ExpectQuery(`SELECT caption FROM batches`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"caption"}).AddRow(nil))
	mock.ExpectQuery(`SELECT file_ref FROM files`).WithArgs("x").WillReturnError(errors.New("files err"))
	_, err = repo.Get(context.Background(), "x")
	assert.Regexp(t, `failed to select files: .*files err`, err.Error())
}

func TestGet_RowsErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT caption FROM batches`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"caption"}).AddRow("c"))
	mock.ExpectQuery(`SELECT file_ref FROM files`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"file_ref"}).
			AddRow(int64(1)).AddRow(int64(2)).RowError(1, errors.New("row-err")))

	_, err := repo.Get(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "row-err", err.Error())
}

func TestExists_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1 FROM batches`).WithArgs("x").WillReturnError(errors.New("db err"))
	_, err := repo.Exists(context.Background(), "x")
	assert.Regexp(t, `failed to check batch: .*db err`, err.Error())
}

func TestCount_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM batches`).WillReturnError(errors.New("b"))
	_, _, err := repo.Count(context.Background())
	assert.Regexp(t, `failed to count batches`, err.Error())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM batches`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM files`).WillReturnError(errors.New("f"))
	_, _, err = repo.Count(context.Background())
	assert.Regexp(t, `failed to count files`, err.Error())
}
