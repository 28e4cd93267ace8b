package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
	"github.com/davidobonyano/yano-school-next-sub001/tests"
)

var (
	first2024  = ledger.MustParsePeriod("First Term", "2024/2025")
	second2024 = ledger.MustParsePeriod("Second Term", "2024/2025")
)

func setupLedger(t *testing.T) (ledger.Repository, core.Transactor) {
	db, conf := testutil.PrepareDB(t)
	repo := NewLedgerRepository(db, conf.Database.Engine)
	students := NewStudentRepository(db, conf.Database.Engine)
	testutil.CreateStudent(t, students, "s1", "Ada Obi", "JSS1", "A")
	testutil.CreateStudent(t, students, "s2", "Bayo Ade", "JSS1", "A")
	return repo, database.NewTransactor(db)
}

func TestLedgerRepository_roundTrip(t *testing.T) {
	repo, _ := setupLedger(t)
	ctx := context.Background()

	created := time.Date(2024, time.October, 1, 9, 30, 0, 0, time.UTC)
	want := ledger.Entry{
		ID:           "e1",
		StudentID:    "s1",
		Period:       first2024,
		Type:         ledger.Payment,
		Amount:       decimal.RequireFromString("12345.67"),
		Description:  "school fees",
		Method:       ledger.MethodTransfer,
		BalanceAfter: decimal.NewNullDecimal(decimal.RequireFromString("0.33")),
		CreatedAt:    created,
	}
	require.NoError(t, repo.InsertEntry(ctx, want))
	testutil.AddEntry(t, repo, "s1", first2024, ledger.Bill, "12346")
	testutil.AddEntry(t, repo, "s1", second2024, ledger.Bill, "5000")
	testutil.AddEntry(t, repo, "s2", first2024, ledger.Bill, "7000")

	got, err := repo.ListStudentEntries(ctx, "s1", first2024)
	require.NoError(t, err)
	require.Len(t, got, 2)

	e := got[0] // ordered by created_at
	assert.Equal(t, want.ID, e.ID)
	assert.Equal(t, want.Period, e.Period)
	assert.Equal(t, want.Type, e.Type)
	assert.True(t, want.Amount.Equal(e.Amount), "amount = %s", e.Amount)
	assert.Equal(t, want.Description, e.Description)
	assert.Equal(t, want.Method, e.Method)
	assert.True(t, e.BalanceAfter.Valid)
	assert.True(t, want.BalanceAfter.Decimal.Equal(e.BalanceAfter.Decimal))
	assert.True(t, want.CreatedAt.Equal(e.CreatedAt))

	assert.Empty(t, got[1].Method)
	assert.False(t, got[1].BalanceAfter.Valid)

	bal := ledger.Calculate("s1", first2024, got)
	assert.True(t, decimal.RequireFromString("0.33").Equal(bal.Outstanding))

	period, err := repo.ListPeriodEntries(ctx, first2024)
	require.NoError(t, err)
	assert.Len(t, period, 3)
}

func TestLedgerRepository_InsertEntries_chunks(t *testing.T) {
	repo, _ := setupLedger(t)
	ctx := context.Background()

	entries := make([]ledger.Entry, 0, insertChunkSize+25)
	for i := 0; i < cap(entries); i++ {
		entries = append(entries, ledger.Entry{
			ID:        "bill-" + decimal.NewFromInt(int64(i)).String(),
			StudentID: "s2",
			Period:    first2024,
			Type:      ledger.Bill,
			Amount:    decimal.NewFromInt(100),
			CreatedAt: time.Now().UTC(),
		})
	}
	require.NoError(t, repo.InsertEntries(ctx, entries))

	got, err := repo.ListStudentEntries(ctx, "s2", first2024)
	require.NoError(t, err)
	assert.Len(t, got, len(entries))
	want := decimal.NewFromInt(100).Mul(decimal.NewFromInt(int64(len(entries))))
	billed := ledger.Calculate("s2", first2024, got).Billed
	assert.True(t, want.Equal(billed), "billed = %s, want %s", billed, want)
}

func TestLedgerRepository_carryForwardIsUnique(t *testing.T) {
	repo, tx := setupLedger(t)
	ctx := context.Background()

	cf := func(id, studentID string) ledger.Entry {
		return ledger.Entry{
			ID: id, StudentID: studentID, Period: second2024, Type: ledger.CarryForward,
			Amount: decimal.NewFromInt(15000), CreatedAt: time.Now().UTC(),
		}
	}

	has, err := repo.HasCarryForward(ctx, "s1", second2024)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.InsertEntries(ctx, []ledger.Entry{cf("cf1", "s1")}))
	has, err = repo.HasCarryForward(ctx, "s1", second2024)
	require.NoError(t, err)
	assert.True(t, has)

	// a batch with a duplicate is rolled back as a whole
	err = tx.Transact(ctx, func(exec core.DBExecutor) error {
		return repo.InsertEntries(ctx, []ledger.Entry{cf("cf2", "s2"), cf("cf3", "s1")}, exec)
	})
	assert.Equal(t, ledger.ErrDuplicateCarryForward, errors.Cause(err))

	has, err = repo.HasCarryForward(ctx, "s2", second2024)
	require.NoError(t, err)
	assert.False(t, has, "s2's carry-forward must not survive the failed batch")
}

func TestLedgerRepository_LockAndDelete(t *testing.T) {
	repo, tx := setupLedger(t)
	ctx := context.Background()

	testutil.AddEntry(t, repo, "s1", first2024, ledger.Bill, "1000")
	testutil.AddEntry(t, repo, "s1", first2024, ledger.Payment, "400", ledger.MethodCash)
	testutil.AddEntry(t, repo, "s1", first2024, ledger.Payment, "100", ledger.MethodCash)
	testutil.AddEntry(t, repo, "s1", second2024, ledger.Payment, "50", ledger.MethodCash)

	var deleted int64
	err := tx.Transact(ctx, func(exec core.DBExecutor) error {
		if err := repo.LockStudent(ctx, "s1", exec); err != nil {
			return err
		}
		var err error
		deleted, err = repo.DeleteEntries(ctx, first2024, []ledger.EntryType{ledger.Payment, ledger.Adjustment}, exec)
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	left, err := repo.ListPeriodEntries(ctx, first2024)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ledger.Bill, left[0].Type)

	other, err := repo.ListPeriodEntries(ctx, second2024)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestLedgerService_onSQLite(t *testing.T) {
	db, conf := testutil.PrepareDB(t)
	repo := NewLedgerRepository(db, conf.Database.Engine)
	students := NewStudentRepository(db, conf.Database.Engine)
	testutil.CreateStudent(t, students, "s1", "Ada Obi", "JSS1", "A")
	testutil.CreateStudent(t, students, "s2", "Bayo Ade", "JSS1", "B")
	testutil.AddEntry(t, repo, "s1", first2024, ledger.Bill, "90000")
	testutil.AddEntry(t, repo, "s1", first2024, ledger.Payment, "60000", ledger.MethodCash)
	testutil.AddEntry(t, repo, "s2", first2024, ledger.Bill, "50000")

	svc := ledger.NewService(database.NewTransactor(db), repo, studentDirectory{students}, nil, nil, discardLogger{})
	ctx := context.Background()

	res, err := svc.CarryForward(ctx, ledger.CarryForwardRequest{From: first2024, To: second2024})
	require.NoError(t, err)
	assert.Equal(t, 2, res.CarriedCount)
	assert.True(t, decimal.NewFromInt(80000).Equal(res.TotalAmount))

	res, err = svc.CarryForward(ctx, ledger.CarryForwardRequest{From: first2024, To: second2024})
	require.NoError(t, err)
	assert.Zero(t, res.CarriedCount)
	assert.Equal(t, 2, res.Skipped)

	settled, err := svc.BulkSettle(ctx, ledger.BulkSettleRequest{StudentIDs: []string{"s1", "s2"}, Period: second2024, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, 2, settled.SettledCount)

	summary, err := svc.GetClassSummary(ctx, second2024)
	require.NoError(t, err)
	assert.Empty(t, summary.Owing)
	assert.True(t, decimal.NewFromInt(80000).Equal(summary.Totals.Collected))
	assert.Len(t, summary.PerClass, 2)
}
