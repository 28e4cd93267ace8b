package dummydb

import (
	"context"
	"sync"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

type (
	DB struct {
		txMu    sync.Mutex
		student *studentTable
		ledger  *ledgerTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	ledgerTable struct {
		sync.RWMutex
		rows []ledger.Entry // insertion order
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		ledger:  &ledgerTable{},
	}
	return db, nil
}

// transactor runs one transaction at a time and restores both tables when fn fails.
type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (tx *transactor) Transact(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx.db.txMu.Lock()
	defer tx.db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	students, entries := tx.db.snapshot()
	if err := fn(nil); err != nil {
		tx.db.restore(students, entries)
		return err
	}
	return nil
}

func (db *DB) snapshot() (map[string]*student.Student, []ledger.Entry) {
	db.student.RLock()
	students := make(map[string]*student.Student, len(db.student.table))
	for id, st := range db.student.table {
		cp := *st
		students[id] = &cp
	}
	db.student.RUnlock()

	db.ledger.RLock()
	entries := append([]ledger.Entry(nil), db.ledger.rows...)
	db.ledger.RUnlock()
	return students, entries
}

func (db *DB) restore(students map[string]*student.Student, entries []ledger.Entry) {
	db.student.Lock()
	db.student.table = students
	db.student.Unlock()

	db.ledger.Lock()
	db.ledger.rows = entries
	db.ledger.Unlock()
}
