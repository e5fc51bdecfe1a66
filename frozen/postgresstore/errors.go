package postgresstore

import "errors"

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when WithTableName receives an empty name.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrMissingColumn is returned when a store is built without WithColumn.
	ErrMissingColumn = errors.New("a frozen column must be configured")

	// ErrEmptyKey is returned when an operation receives an empty key.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrBuildingQueryFailed is returned when goqu cannot render a statement.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrSavingFrozenObjectFailed is returned when the upsert fails.
	ErrSavingFrozenObjectFailed = errors.New("saving frozen object failed")

	// ErrLoadingFrozenObjectFailed is returned when reading or restoring a payload fails.
	ErrLoadingFrozenObjectFailed = errors.New("loading frozen object failed")

	// ErrDeletingFrozenObjectFailed is returned when the delete statement fails.
	ErrDeletingFrozenObjectFailed = errors.New("deleting frozen object failed")

	// ErrCreatingTableFailed is returned when CreateTable fails.
	ErrCreatingTableFailed = errors.New("creating table failed")
)
