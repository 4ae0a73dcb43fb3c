// Package mdbx is the production kv.RwDB backend, over the teacher's
// embedded transactional store: github.com/erigontech/mdbx-go. Table
// names become MDBX named sub-databases opened once at startup, exactly
// as erigon-lib/kv's mdbx backend opens one DBI per declared table.
package mdbx

import (
	"context"
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/kv"
)

type DB struct {
	env  *mdbx.Env
	dbis map[string]mdbx.DBI
}

// Open creates (if needed) and opens an MDBX environment at path with one
// named sub-database per kv.AllTables entry.
func Open(path string) (*DB, error) {
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, hubcore.Wrap(err, "mdbx: new env")
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(len(kv.AllTables)+8)); err != nil {
		return nil, hubcore.Wrap(err, "mdbx: set maxdbs")
	}
	if err := env.Open(path, mdbx.NoSubdir|mdbx.Coalesce|mdbx.LifoReclaim, 0664); err != nil {
		return nil, hubcore.Wrap(err, fmt.Sprintf("mdbx: open %s", path))
	}

	db := &DB{env: env, dbis: make(map[string]mdbx.DBI, len(kv.AllTables))}
	err = env.Update(func(txn *mdbx.Txn) error {
		for _, table := range kv.AllTables {
			dbi, err := txn.OpenDBISimple(table, mdbx.Create)
			if err != nil {
				return err
			}
			db.dbis[table] = dbi
		}
		return nil
	})
	if err != nil {
		env.Close()
		return nil, hubcore.Wrap(err, "mdbx: open tables")
	}
	return db, nil
}

func (d *DB) Close() error {
	d.env.Close()
	return nil
}

func (d *DB) View(ctx context.Context, f func(tx kv.Tx) error) error {
	return d.env.View(func(txn *mdbx.Txn) error {
		return f(&roTxn{db: d, txn: txn})
	})
}

func (d *DB) Update(ctx context.Context, f func(tx kv.RwTx) error) error {
	return d.env.Update(func(txn *mdbx.Txn) error {
		return f(&rwTxn{roTxn{db: d, txn: txn}})
	})
}

type roTxn struct {
	db  *DB
	txn *mdbx.Txn
}

func (t *roTxn) Get(table string, key []byte) ([]byte, error) {
	v, err := t.txn.Get(t.db.dbis[table], key)
	if mdbx.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (t *roTxn) Has(table string, key []byte) (bool, error) {
	v, err := t.Get(table, key)
	return v != nil, err
}

func (t *roTxn) Cursor(table string) (kv.Cursor, error) {
	c, err := t.txn.OpenCursor(t.db.dbis[table])
	if err != nil {
		return nil, err
	}
	return &cursor{c: c}, nil
}

type rwTxn struct{ roTxn }

func (t *rwTxn) Put(table string, key, value []byte) error {
	return t.txn.Put(t.db.dbis[table], key, value, 0)
}

func (t *rwTxn) Delete(table string, key []byte) error {
	err := t.txn.Del(t.db.dbis[table], key, nil)
	if mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

type cursor struct {
	c     *mdbx.Cursor
	first bool
}

func (c *cursor) Seek(prefix []byte) ([]byte, []byte, error) {
	k, v, err := c.c.Get(prefix, nil, mdbx.SetRange)
	if mdbx.IsNotFound(err) {
		return nil, nil, nil
	}
	return k, v, err
}

func (c *cursor) Next() ([]byte, []byte, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Next)
	if mdbx.IsNotFound(err) {
		return nil, nil, nil
	}
	return k, v, err
}

func (c *cursor) Close() { c.c.Close() }
