package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/frozen-objects-go/frozen"
	"github.com/AntonStoeckl/frozen-objects-go/frozen/postgresstore/internal/adapters"
)

const (
	defaultTableName = "frozen_objects"
	dialectPostgres  = "postgres"
	colKey           = "key"
	colModel         = "model"
	colPayload       = "payload"
	colFrozenAt      = "frozen_at"
	castJsonb        = "?::jsonb"
	excludedPrefix   = "EXCLUDED."
	createTableSQL   = `CREATE TABLE IF NOT EXISTS %s (
	%s text PRIMARY KEY,
	%s text NOT NULL,
	%s jsonb,
	%s timestamptz
)`
)

// Store keeps the frozen objects of one column in a PostgreSQL table.
type Store struct {
	db               adapters.DBAdapter
	tableName        string
	column           frozen.Column
	hasColumn        bool
	logger           frozen.Logger
	contextualLogger frozen.ContextualLogger
	metricsCollector frozen.MetricsCollector
	tracingCollector frozen.TracingCollector
}

// NewStoreFromPGXPool creates a Store backed by a pgx connection pool.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromPGXPoolAndReplica creates a Store which writes to the primary pool and reads from the replica.
func NewStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil || replica == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewStoreFromSQLDB creates a Store backed by database/sql, e.g. opened with the lib/pq driver.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a Store backed by sqlx.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (Store, error) {
	s := Store{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return Store{}, err
		}
	}

	if !s.hasColumn {
		return Store{}, ErrMissingColumn
	}

	return s, nil
}

// Column returns the column the Store is bound to.
func (s Store) Column() frozen.Column {
	return s.column
}

// TableName returns the name of the backing table.
func (s Store) TableName() string {
	return s.tableName
}

// CreateTable creates the backing table if it does not exist yet.
func (s Store) CreateTable(ctx context.Context) error {
	observer, ctx := s.startOperation(ctx, operationCreateTable, nil)

	sqlQuery := fmt.Sprintf(
		createTableSQL,
		pq.QuoteIdentifier(s.tableName),
		pq.QuoteIdentifier(colKey),
		pq.QuoteIdentifier(colModel),
		pq.QuoteIdentifier(colPayload),
		pq.QuoteIdentifier(colFrozenAt),
	)

	if _, err := s.exec(ctx, operationCreateTable, sqlQuery); err != nil {
		err = errors.Join(ErrCreatingTableFailed, err)
		observer.failure(errorTypeDatabaseExec, err)

		return err
	}

	observer.success()

	return nil
}

// Put freezes obj with the selection of the column and stores it under key, replacing what was there.
//
// Restored nodes are refused with frozen.ErrStaleObject: they are stale data, not live objects.
// A nil obj is stored as a NULL payload.
func (s Store) Put(ctx context.Context, key string, obj frozen.Object) error {
	observer, ctx := s.startOperation(ctx, operationPut, map[string]string{spanAttrKey: key})

	if key == "" {
		observer.failure(errorTypeInvalidInput, ErrEmptyKey)
		return ErrEmptyKey
	}

	if err := frozen.CheckPersistable(obj); err != nil {
		observer.failure(errorTypeStaleObject, err)
		return err
	}

	node, err := s.column.Freeze(obj)
	if err != nil {
		observer.failure(errorTypeFreeze, err)
		return err
	}

	return s.write(ctx, observer, key, node)
}

// PutFrozen stores an existing snapshot under key. The snapshot is written as a value, not persisted as
// live data, so restored nodes are accepted here. It must be of the column's model.
func (s Store) PutFrozen(ctx context.Context, key string, node *frozen.Node) error {
	observer, ctx := s.startOperation(ctx, operationPutFrozen, map[string]string{spanAttrKey: key})

	if key == "" {
		observer.failure(errorTypeInvalidInput, ErrEmptyKey)
		return ErrEmptyKey
	}

	if node != nil {
		if _, err := s.column.Freeze(node); err != nil {
			observer.failure(errorTypeFreeze, err)
			return err
		}
	}

	return s.write(ctx, observer, key, node)
}

func (s Store) write(ctx context.Context, observer *operationObserver, key string, node *frozen.Node) error {
	payload, err := s.column.PrepValue(node)
	if err != nil {
		observer.failure(errorTypeEncode, err)
		return errors.Join(ErrSavingFrozenObjectFailed, err)
	}

	sqlQuery, err := s.buildUpsertQuery(key, node, payload)
	if err != nil {
		observer.failure(errorTypeBuildQuery, err)
		return err
	}

	if _, err = s.exec(ctx, observer.operation, sqlQuery); err != nil {
		err = errors.Join(ErrSavingFrozenObjectFailed, err)
		observer.failure(errorTypeDatabaseExec, err)

		return err
	}

	s.recordPayloadSize(ctx, observer.operation, len(payload))
	observer.success(logAttrKey, key, logAttrPayloadBytes, len(payload))

	return nil
}

// Get restores the node stored under key. It returns nil, nil when nothing or NULL is stored.
func (s Store) Get(ctx context.Context, key string) (*frozen.Node, error) {
	observer, ctx := s.startOperation(ctx, operationGet, map[string]string{spanAttrKey: key})

	if key == "" {
		observer.failure(errorTypeInvalidInput, ErrEmptyKey)
		return nil, ErrEmptyKey
	}

	sqlQuery, err := s.buildSelectQuery(key)
	if err != nil {
		observer.failure(errorTypeBuildQuery, err)
		return nil, err
	}

	payload, found, err := s.queryPayload(ctx, sqlQuery)
	if err != nil {
		observer.failure(errorTypeDatabaseQuery, err)
		return nil, err
	}

	if !found {
		observer.success(logAttrKey, key, logAttrFound, false)
		return nil, nil
	}

	node, err := s.column.FromDBValue(payload)
	if err != nil {
		err = errors.Join(ErrLoadingFrozenObjectFailed, err)
		observer.failure(errorTypeUnfreeze, err)

		return nil, err
	}

	observer.success(logAttrKey, key, logAttrFound, true)

	return node, nil
}

// Delete removes what is stored under key. Deleting a missing key is not an error.
func (s Store) Delete(ctx context.Context, key string) error {
	observer, ctx := s.startOperation(ctx, operationDelete, map[string]string{spanAttrKey: key})

	if key == "" {
		observer.failure(errorTypeInvalidInput, ErrEmptyKey)
		return ErrEmptyKey
	}

	sqlQuery, err := s.buildDeleteQuery(key)
	if err != nil {
		observer.failure(errorTypeBuildQuery, err)
		return err
	}

	rowsAffected, err := s.exec(ctx, operationDelete, sqlQuery)
	if err != nil {
		err = errors.Join(ErrDeletingFrozenObjectFailed, err)
		observer.failure(errorTypeDatabaseExec, err)

		return err
	}

	observer.success(logAttrKey, key, logAttrRowsAffected, rowsAffected)

	return nil
}

func (s Store) exec(ctx context.Context, operation string, sqlQuery string) (int64, error) {
	start := time.Now()
	result, err := s.db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, operation, time.Since(start))

	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rowsAffected, nil
}

func (s Store) queryPayload(ctx context.Context, sqlQuery string) ([]byte, bool, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, operationGet, time.Since(start))

	if err != nil {
		return nil, false, errors.Join(ErrLoadingFrozenObjectFailed, err)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, false, errors.Join(ErrLoadingFrozenObjectFailed, err)
		}

		return nil, false, nil
	}

	var payload []byte
	if err = rows.Scan(&payload); err != nil {
		return nil, false, errors.Join(ErrLoadingFrozenObjectFailed, err)
	}

	return payload, true, nil
}

func (s Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

func (s Store) buildUpsertQuery(key string, node *frozen.Node, payload []byte) (string, error) {
	record := goqu.Record{
		colKey:      key,
		colModel:    string(s.column.Spec().SourceModel),
		colPayload:  nil,
		colFrozenAt: nil,
	}

	if node != nil {
		record[colPayload] = goqu.L(castJsonb, string(payload))
		record[colFrozenAt] = node.Meta().FrozenAt().UTC()
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(record).
		OnConflict(goqu.DoUpdate(colKey, goqu.Record{
			colModel:    goqu.L(excludedPrefix + colModel),
			colPayload:  goqu.L(excludedPrefix + colPayload),
			colFrozenAt: goqu.L(excludedPrefix + colFrozenAt),
		})).
		ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (s Store) buildSelectQuery(key string) (string, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colPayload).
		Where(goqu.C(colKey).Eq(key)).
		ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (s Store) buildDeleteQuery(key string) (string, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colKey).Eq(key)).
		ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}
