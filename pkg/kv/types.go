// Package kv defines the ordered byte-keyed transactional store the core
// consumes. It mirrors the teacher's erigon-lib/kv shape (RoDB/RwDB,
// Tx/RwTx, Cursor) trimmed to what the hub core needs: get/put/delete,
// prefix iteration and atomic read-write transactions. Concrete backends
// live in kv/memdb (tests) and kv/mdbx (production).
package kv

import "context"

// Tx is a read-only view over one or more tables.
type Tx interface {
	Get(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)
	// Cursor returns an iterator positioned before the first key.
	Cursor(table string) (Cursor, error)
}

// RwTx additionally allows mutation. All writes in a RwTx commit or
// rollback atomically together, matching the "one KV transaction"
// requirement of the merge/prune/revoke algorithms.
type RwTx interface {
	Tx
	Put(table string, key, value []byte) error
	Delete(table string, key []byte) error
}

// Cursor walks a table in key order. Seek positions at the first key >=
// prefix; Next advances; both return (nil, nil, nil) at exhaustion.
type Cursor interface {
	Seek(prefix []byte) (key, value []byte, err error)
	Next() (key, value []byte, err error)
	Close()
}

// RoDB and RwDB are the two handles a caller obtains from a backend.
// Views/Updates follow the teacher's pattern of short-lived callback
// scoped transactions rather than exposing Begin/Commit directly, so a
// transaction can never be forgotten and left open.
type RoDB interface {
	View(ctx context.Context, f func(tx Tx) error) error
	Close() error
}

type RwDB interface {
	RoDB
	Update(ctx context.Context, f func(tx RwTx) error) error
}
