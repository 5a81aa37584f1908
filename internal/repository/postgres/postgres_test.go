package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return sqlx.NewDb(db, "sqlmock"), mock
}

var reviewCols = []string{"id", "game_id", "rating", "review_text", "is_public", "created_at", "updated_at"}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: codeUniqueViolation}), domain.ErrConflict)
	assert.ErrorIs(t, mapError(&pq.Error{Code: codeForeignKeyViolation}), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: codeCheckViolation}), domain.ErrInvalidInput)
	assert.ErrorIs(t, mapError(assert.AnError), assert.AnError)
}

func TestReviewRepository_GetForUserGame(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE user_id = $1 AND game_id = $2")).
		WithArgs(int64(1), int64(42)).
		WillReturnRows(sqlmock.NewRows(reviewCols).AddRow(7, 42, 8, "great", false, now, now))

	review, err := repo.GetForUserGame(context.Background(), 1, 42)

	require.NoError(t, err)
	assert.Equal(t, int64(7), *review.ID)
	assert.Equal(t, 8, *review.Rating)
	assert.Equal(t, "great", *review.ReviewText)
	assert.False(t, review.IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetForUserGame_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("FROM reviews").
		WithArgs(int64(1), int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUserGame(context.Background(), 1, 42)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReviewRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(int64(1), int64(42), 7, nil, true).
		WillReturnRows(sqlmock.NewRows(reviewCols).AddRow(101, 42, 7, nil, true, now, now))

	review, err := repo.Create(context.Background(), 1, 42, domain.ReviewInput{Rating: domain.IntPtr(7), IsPublic: true})

	require.NoError(t, err)
	assert.Equal(t, int64(101), *review.ID)
	assert.Nil(t, review.ReviewText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_GameMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.Create(context.Background(), 1, 42, domain.ReviewInput{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO reviews").
		WillReturnError(&pq.Error{Code: codeUniqueViolation})

	_, err := repo.Create(context.Background(), 1, 42, domain.ReviewInput{Rating: domain.IntPtr(3)})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReviewRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	now := time.Now()

	mock.ExpectQuery("UPDATE reviews").
		WithArgs(9, "edited", false, int64(101)).
		WillReturnRows(sqlmock.NewRows(reviewCols).AddRow(101, 42, 9, "edited", false, now, now))

	review, err := repo.Update(context.Background(), 101, domain.ReviewInput{
		Rating:     domain.IntPtr(9),
		ReviewText: domain.StringPtr("edited"),
	})

	require.NoError(t, err)
	assert.Equal(t, 9, *review.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("UPDATE reviews").WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 5, domain.ReviewInput{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReviewRepository_GetOwnerID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("SELECT user_id FROM reviews").
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))

	owner, err := repo.GetOwnerID(context.Background(), 101)

	require.NoError(t, err)
	assert.Equal(t, int64(3), owner)
}

func TestGameRepository_GetForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGameRepository(db)

	mock.ExpectQuery("FROM games g").
		WithArgs(int64(1), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_guid", "name", "cover_url", "avg_rating", "status", "rating"}).
			AddRow(42, "rawg-42", "Hades", nil, "8.5", "completed", 9))

	game, err := repo.GetForUser(context.Background(), 1, 42)

	require.NoError(t, err)
	assert.Equal(t, "Hades", game.Name)
	assert.Equal(t, domain.StatusCompleted, *game.Status)
	assert.Equal(t, 8.5, *game.AvgRating)
	assert.Equal(t, 9.0, *game.Rating)
	assert.Nil(t, game.CoverURL)
}

func TestGameRepository_GetIDByExternalGUID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGameRepository(db)

	mock.ExpectQuery("SELECT id FROM games WHERE external_guid").
		WithArgs("rawg-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetIDByExternalGUID(context.Background(), "rawg-1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGameRepository_Import(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGameRepository(db)

	mock.ExpectQuery("INSERT INTO games").
		WithArgs("rawg-1", "Celeste", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(900))

	id, err := repo.Import(context.Background(), "rawg-1", "Celeste", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(900), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_UpsertStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGameRepository(db)

	mock.ExpectQuery("INSERT INTO user_games").
		WithArgs(int64(1), int64(42), "on_going").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("on_going"))

	st, err := repo.UpsertStatus(context.Background(), 1, 42, domain.StatusOnGoing)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnGoing, st)
}

func TestGameRepository_UpsertStatus_UnknownGame(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGameRepository(db)

	mock.ExpectQuery("INSERT INTO user_games").
		WillReturnError(&pq.Error{Code: codeForeignKeyViolation})

	_, err := repo.UpsertStatus(context.Background(), 1, 404, domain.StatusOnGoing)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_GetIDByToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT id FROM users WHERE api_token").
		WithArgs("dev-token").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT id FROM users WHERE api_token").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	id, err := repo.GetIDByToken(context.Background(), "dev-token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = repo.GetIDByToken(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
