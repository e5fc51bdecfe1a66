// Package postgreswrapper opens the test database with the driver chosen by ADAPTER_TYPE
// (pgx.pool, sql.db or sqlx.db) and builds a frozen object store on top of it.
//
// The database is found through FROZEN_TEST_DSN. Tests using the wrapper are skipped when it is not set.
package postgreswrapper
