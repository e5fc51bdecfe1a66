// Package adapters hides the differences between pgx, database/sql and sqlx behind one small interface,
// so the frozen object store issues the same statements no matter which driver the caller chose.
package adapters
