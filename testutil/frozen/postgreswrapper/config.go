package postgreswrapper

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"
)

const (
	envDSN         = "FROZEN_TEST_DSN"
	envAdapterType = "ADAPTER_TYPE"

	defaultMaxConnections  = 10
	defaultMaxIdle         = 2
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = time.Minute * 5
	defaultConnectTimeout  = time.Second * 5
)

// DSN returns the test database DSN and skips the test when none is configured.
func DSN(t testing.TB) string {
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping database test", envDSN)
	}

	return dsn
}

// PGXPoolConfig creates a pgxpool.Config for the test database.
func PGXPoolConfig(t testing.TB) *pgxpool.Config {
	dbConfig, err := pgxpool.ParseConfig(DSN(t))
	require.NoError(t, err, "error parsing the test dsn")

	dbConfig.MaxConns = defaultMaxConnections
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig
}

// SQLDB opens and pings a *sql.DB for the test database with the lib/pq driver.
func SQLDB(t testing.TB) *sql.DB {
	db, err := sql.Open("postgres", DSN(t))
	require.NoError(t, err, "error opening the test database")

	configurePool(db)
	require.NoError(t, db.PingContext(context.Background()), "error pinging the test database")

	return db
}

// SQLX opens and pings a *sqlx.DB for the test database with the lib/pq driver.
func SQLX(t testing.TB) *sqlx.DB {
	db, err := sqlx.Open("postgres", DSN(t))
	require.NoError(t, err, "error opening the test database")

	configurePool(db.DB)
	require.NoError(t, db.PingContext(context.Background()), "error pinging the test database")

	return db
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(defaultMaxConnections)
	db.SetMaxIdleConns(defaultMaxIdle)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}
