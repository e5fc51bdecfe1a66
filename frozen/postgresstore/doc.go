// Package postgresstore keeps frozen objects in a PostgreSQL table, one jsonb payload per key.
//
// The store works with three driver flavours through the same constructors pattern:
// pgx (NewStoreFromPGXPool), database/sql with lib/pq (NewStoreFromSQLDB) and sqlx (NewStoreFromSQLX).
// Every store is bound to a frozen.Column which decides the accepted model, the captured selection
// and the converters applied when payloads are read back.
//
// Basic usage:
//
//	column, err := frozen.NewColumn(frozen.ColumnSpec{Name: "address", SourceModel: "shop.Address"})
//	store, err := postgresstore.NewStoreFromPGXPool(pool, postgresstore.WithColumn(column))
//	err = store.Put(ctx, "order-42", address)
//	node, err := store.Get(ctx, "order-42")
//
// Live objects are captured on Put. Restored nodes are stale: Put refuses them with frozen.ErrStaleObject,
// while PutFrozen copies an existing snapshot under another key.
package postgresstore
