package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := OpenPostgres(Config{DSN: "postgres://%zz"})
	require.Error(t, err)
}

func TestOpenSQLiteInMemory(t *testing.T) {
	gdb, err := Open(Config{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())
}
