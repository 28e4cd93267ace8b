package dummydb

import (
	"context"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
)

type ledgerRepository struct {
	db *ledgerTable
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *DB) ledger.Repository {
	return &ledgerRepository{db: db.ledger}
}

func (repo *ledgerRepository) filter(keep func(e ledger.Entry) bool) []ledger.Entry {
	entries := make([]ledger.Entry, 0)
	for _, e := range repo.db.rows {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	return entries
}

func (repo *ledgerRepository) hasCarryForward(studentID string, period ledger.Period) bool {
	for _, e := range repo.db.rows {
		if e.Type == ledger.CarryForward && e.StudentID == studentID && e.Period == period {
			return true
		}
	}
	return false
}

func (repo *ledgerRepository) ListStudentEntries(_ context.Context, studentID string, period ledger.Period, _ ...core.DBExecutor) ([]ledger.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(e ledger.Entry) bool {
		return e.StudentID == studentID && e.Period == period
	}), nil
}

func (repo *ledgerRepository) ListPeriodEntries(_ context.Context, period ledger.Period, _ ...core.DBExecutor) ([]ledger.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(e ledger.Entry) bool { return e.Period == period }), nil
}

// InsertEntries mirrors the unique carry-forward index: a duplicate rejects the whole batch.
func (repo *ledgerRepository) InsertEntries(_ context.Context, entries []ledger.Entry, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	type key struct {
		studentID string
		period    ledger.Period
	}
	seen := make(map[key]struct{})
	for _, e := range entries {
		if e.Type != ledger.CarryForward {
			continue
		}
		k := key{e.StudentID, e.Period}
		if _, dup := seen[k]; dup || repo.hasCarryForward(e.StudentID, e.Period) {
			return ledger.ErrDuplicateCarryForward
		}
		seen[k] = struct{}{}
	}
	repo.db.rows = append(repo.db.rows, entries...)
	return nil
}

func (repo *ledgerRepository) InsertEntry(ctx context.Context, entry ledger.Entry, exec ...core.DBExecutor) error {
	return repo.InsertEntries(ctx, []ledger.Entry{entry}, exec...)
}

func (repo *ledgerRepository) HasCarryForward(_ context.Context, studentID string, period ledger.Period, _ ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.hasCarryForward(studentID, period), nil
}

// LockStudent is a no-op; dummy transactions already run one at a time.
func (repo *ledgerRepository) LockStudent(context.Context, string, ...core.DBExecutor) error {
	return nil
}

func (repo *ledgerRepository) DeleteEntries(_ context.Context, period ledger.Period, types []ledger.EntryType, _ ...core.DBExecutor) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	drop := make(map[ledger.EntryType]bool, len(types))
	for _, t := range types {
		drop[t] = true
	}
	kept := make([]ledger.Entry, 0, len(repo.db.rows))
	var deleted int64
	for _, e := range repo.db.rows {
		if e.Period == period && drop[e.Type] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	repo.db.rows = kept
	return deleted, nil
}
