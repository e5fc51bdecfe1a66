package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/frozen-objects-go/frozen/postgresstore"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper abstracts over the driver a store was built with.
type Wrapper interface {
	GetStore() postgresstore.Store
	Exec(ctx context.Context, query string) error
	Close()
}

// PGXPoolWrapper wraps a pgxpool-based store.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresstore.Store
}

func (w *PGXPoolWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *PGXPoolWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.pool.Exec(ctx, query)
	return err
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps a sql.DB-based store.
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresstore.Store
}

func (w *SQLDBWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *SQLDBWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps a sqlx.DB-based store.
type SQLXWrapper struct {
	db    *sqlx.DB
	store postgresstore.Store
}

func (w *SQLXWrapper) GetStore() postgresstore.Store {
	return w.store
}

func (w *SQLXWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapper builds a store for the adapter named in ADAPTER_TYPE, creates its table and
// registers the cleanup which drops the table and closes the connection.
func CreateWrapper(t testing.TB, tableName string, options ...postgresstore.Option) Wrapper {
	options = append(options, postgresstore.WithTableName(tableName))
	adapterType := strings.ToLower(os.Getenv(envAdapterType))

	var wrapper Wrapper

	switch adapterType {
	case typePGXPool, "":
		pool, err := pgxpool.NewWithConfig(context.Background(), PGXPoolConfig(t))
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresstore.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating frozen object store")

		wrapper = &PGXPoolWrapper{pool: pool, store: store}

	case typeSQLDB:
		db := SQLDB(t)

		store, err := postgresstore.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating frozen object store")

		wrapper = &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := SQLX(t)

		store, err := postgresstore.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating frozen object store")

		wrapper = &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}

	require.NoError(t, wrapper.GetStore().CreateTable(context.Background()), "error creating the test table")

	t.Cleanup(func() {
		_ = wrapper.Exec(context.Background(), "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(tableName))
		wrapper.Close()
	})

	return wrapper
}
