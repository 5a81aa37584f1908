package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)

	require.Len(t, names, 4)
	assert.Equal(t, "migrations/000001_create_users_table.up.sql", names[0])
	assert.Equal(t, "migrations/000004_seed_dev_user.up.sql", names[3])
}

func TestRunMigrations_EachInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	names, err := Migrations()
	require.NoError(t, err)
	for range names {
		mock.ExpectBegin()
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}

	err = RunMigrations(sqlx.NewDb(db, "sqlmock"))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = RunMigrations(sqlx.NewDb(db, "sqlmock"))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "000001_create_users_table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
