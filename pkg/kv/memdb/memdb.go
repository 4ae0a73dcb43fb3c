// Package memdb is an in-memory kv.RwDB backed by github.com/google/btree,
// used by unit and property tests and by callers that don't need mdbx's
// durability. It is grounded in the teacher's habit of keeping a pure
// in-memory counterpart to the durable backend for fast table-driven
// tests (erigon-lib/kv ships an equivalent memdb for the same reason).
package memdb

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/meridianhub/hub/pkg/kv"
)

type item struct {
	key, value []byte
}

func (a *item) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(*item).key) < 0
}

// DB holds one btree per table behind a single RWMutex. Real backends
// isolate tables from each other and allow concurrent readers during a
// writer; this implementation favors simplicity since it is test-only.
type DB struct {
	mu     sync.RWMutex
	tables map[string]*btree.BTree
}

func New() *DB {
	d := &DB{tables: make(map[string]*btree.BTree, len(kv.AllTables))}
	for _, t := range kv.AllTables {
		d.tables[t] = btree.New(32)
	}
	return d
}

func (d *DB) Close() error { return nil }

func (d *DB) View(_ context.Context, f func(tx kv.Tx) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return f(&txn{db: d})
}

func (d *DB) Update(_ context.Context, f func(tx kv.RwTx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Stage writes so a mid-transaction error leaves the prior state
	// untouched, matching the "commit or rollback atomically" contract.
	staged := make(map[string]*btree.BTree, len(d.tables))
	for name, t := range d.tables {
		staged[name] = t.Clone()
	}
	tx := &txn{db: d, staged: staged}
	if err := f(tx); err != nil {
		return err
	}
	d.tables = staged
	return nil
}

func (d *DB) tableFor(tx *txn, table string) *btree.BTree {
	if tx.staged != nil {
		return tx.staged[table]
	}
	return d.tables[table]
}

type txn struct {
	db     *DB
	staged map[string]*btree.BTree
}

func (tx *txn) Get(table string, key []byte) ([]byte, error) {
	t := tx.db.tableFor(tx, table)
	if t == nil {
		return nil, nil
	}
	found := t.Get(&item{key: key})
	if found == nil {
		return nil, nil
	}
	return found.(*item).value, nil
}

func (tx *txn) Has(table string, key []byte) (bool, error) {
	v, err := tx.Get(table, key)
	return v != nil, err
}

func (tx *txn) Put(table string, key, value []byte) error {
	t := tx.db.tableFor(tx, table)
	cp := append([]byte(nil), value...)
	kcp := append([]byte(nil), key...)
	t.ReplaceOrInsert(&item{key: kcp, value: cp})
	return nil
}

func (tx *txn) Delete(table string, key []byte) error {
	t := tx.db.tableFor(tx, table)
	t.Delete(&item{key: key})
	return nil
}

func (tx *txn) Cursor(table string) (kv.Cursor, error) {
	return &cursor{tx: tx, table: table}, nil
}

// cursor replays the whole ascending sequence >= the seeked key into a
// slice up front. Simple, and adequate for memdb's test-only role; the
// mdbx backend implements this with a real streaming cursor.
type cursor struct {
	tx    *txn
	table string
	keys  [][]byte
	vals  [][]byte
	pos   int
}

func (c *cursor) Seek(prefix []byte) ([]byte, []byte, error) {
	t := c.tx.db.tableFor(c.tx, c.table)
	c.keys, c.vals, c.pos = nil, nil, 0
	if t == nil {
		return nil, nil, nil
	}
	t.AscendGreaterOrEqual(&item{key: prefix}, func(i btree.Item) bool {
		it := i.(*item)
		c.keys = append(c.keys, it.key)
		c.vals = append(c.vals, it.value)
		return true
	})
	return c.next()
}

func (c *cursor) Next() ([]byte, []byte, error) {
	return c.next()
}

func (c *cursor) next() ([]byte, []byte, error) {
	if c.pos >= len(c.keys) {
		return nil, nil, nil
	}
	k, v := c.keys[c.pos], c.vals[c.pos]
	c.pos++
	return k, v, nil
}

func (c *cursor) Close() {}
