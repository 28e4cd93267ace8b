package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
)

const (
	entryColumns = "id, student_id, term, session, entry_type, amount, description, method, balance_after, created_at"
	entryColCnt  = 10

	// rows per INSERT statement
	insertChunkSize = 50
)

type entryRow struct {
	ID           string              `db:"id"`
	StudentID    string              `db:"student_id"`
	Term         string              `db:"term"`
	Session      string              `db:"session"`
	EntryType    string              `db:"entry_type"`
	Amount       decimal.Decimal     `db:"amount"`
	Description  string              `db:"description"`
	Method       null.String         `db:"method"`
	BalanceAfter decimal.NullDecimal `db:"balance_after"`
	CreatedAt    time.Time           `db:"created_at"`
}

func toEntryRow(e ledger.Entry) entryRow {
	return entryRow{
		ID:           e.ID,
		StudentID:    e.StudentID,
		Term:         e.Period.Term.String(),
		Session:      e.Period.Session.String(),
		EntryType:    string(e.Type),
		Amount:       e.Amount,
		Description:  e.Description,
		Method:       null.NewString(e.Method, e.Method != ""),
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt.UTC(),
	}
}

func (r entryRow) args() []interface{} {
	return []interface{}{
		r.ID, r.StudentID, r.Term, r.Session, r.EntryType, r.Amount, r.Description, r.Method, r.BalanceAfter, r.CreatedAt,
	}
}

func (r entryRow) toEntry() (ledger.Entry, error) {
	period, err := ledger.ParsePeriod(r.Term, r.Session)
	if err != nil {
		return ledger.Entry{}, errors.Wrapf(err, "entry %s", r.ID)
	}
	return ledger.Entry{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Period:       period,
		Type:         ledger.EntryType(r.EntryType),
		Amount:       r.Amount,
		Description:  r.Description,
		Method:       r.Method.String,
		BalanceAfter: r.BalanceAfter,
		CreatedAt:    r.CreatedAt.UTC(),
	}, nil
}

type ledgerRepository struct {
	base
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

// NewLedgerRepository returns the ledger store for `engine` ("postgres" or "sqlite3").
func NewLedgerRepository(exec core.DBExecutor, engine string) ledger.Repository {
	return &ledgerRepository{base: newBase(exec, engine)}
}

func (repo ledgerRepository) selectEntries(ctx context.Context, exec core.DBExecutor, where string, args ...interface{}) ([]ledger.Entry, error) {
	q := repo.rebind("SELECT " + entryColumns + " FROM ledger_entries WHERE " + where + " ORDER BY created_at, id")
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	defer func() { _ = rows.Close() }()

	var dbRows []entryRow
	if err = sqlx.StructScan(rows, &dbRows); err != nil {
		return nil, errors.Wrap(err, "scanning entries")
	}
	entries := make([]ledger.Entry, 0, len(dbRows))
	for _, r := range dbRows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (repo ledgerRepository) ListStudentEntries(ctx context.Context, studentID string, period ledger.Period, exec ...core.DBExecutor) ([]ledger.Entry, error) {
	return repo.selectEntries(
		ctx, repo.getExec(exec),
		"student_id = ? AND term = ? AND session = ?",
		studentID, period.Term.String(), period.Session.String(),
	)
}

func (repo ledgerRepository) ListPeriodEntries(ctx context.Context, period ledger.Period, exec ...core.DBExecutor) ([]ledger.Entry, error) {
	return repo.selectEntries(
		ctx, repo.getExec(exec),
		"term = ? AND session = ?",
		period.Term.String(), period.Session.String(),
	)
}

// InsertEntries is atomic only when exec is a transaction; callers batch through core.Transactor.
func (repo ledgerRepository) InsertEntries(ctx context.Context, entries []ledger.Entry, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	for start := 0; start < len(entries); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		args := make([]interface{}, 0, len(chunk)*entryColCnt)
		for _, e := range chunk {
			args = append(args, toEntryRow(e).args()...)
		}
		q := "INSERT INTO ledger_entries (" + entryColumns + ") VALUES " +
			strmangle.Placeholders(repo.useIndexPlaceholders(), len(args), 1, entryColCnt)
		if _, err := ex.ExecContext(ctx, q, args...); err != nil {
			if isUniqueViolation(err) {
				return ledger.ErrDuplicateCarryForward
			}
			return errors.Wrap(err, "inserting entries")
		}
	}
	return nil
}

func (repo ledgerRepository) InsertEntry(ctx context.Context, entry ledger.Entry, exec ...core.DBExecutor) error {
	return repo.InsertEntries(ctx, []ledger.Entry{entry}, exec...)
}

func (repo ledgerRepository) HasCarryForward(ctx context.Context, studentID string, period ledger.Period, exec ...core.DBExecutor) (bool, error) {
	q := repo.rebind(`SELECT COUNT(*) FROM ledger_entries
		WHERE student_id = ? AND term = ? AND session = ? AND entry_type = ?`)
	var n int
	err := repo.getExec(exec).QueryRowContext(
		ctx, q, studentID, period.Term.String(), period.Session.String(), string(ledger.CarryForward),
	).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "checking carry-forward")
	}
	return n > 0, nil
}

// LockStudent takes a row lock on the student on postgres. Sqlite serializes writers at the database level.
func (repo ledgerRepository) LockStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error {
	if repo.bindType != sqlx.DOLLAR {
		return nil
	}
	var id string
	err := repo.getExec(exec).QueryRowContext(ctx, "SELECT id FROM students WHERE id = $1 FOR UPDATE", studentID).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "locking student")
	}
	return nil
}

func (repo ledgerRepository) DeleteEntries(ctx context.Context, period ledger.Period, types []ledger.EntryType, exec ...core.DBExecutor) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	q, args, err := sqlx.In(
		"DELETE FROM ledger_entries WHERE term = ? AND session = ? AND entry_type IN (?)",
		period.Term.String(), period.Session.String(), names,
	)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, repo.rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting entries")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted entries")
}
