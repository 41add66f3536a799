package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchapp/backend/internal/config"
)

func TestConnString(t *testing.T) {
	s := ConnString(config.DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "church", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=church sslmode=disable", s)
}

func TestWithTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.Exec("DELETE FROM sessions WHERE revoked")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range migrations {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(migrations[0]).WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migration 0 failed")
}
