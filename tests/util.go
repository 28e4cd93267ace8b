// Package testutil sets up real (sqlite) databases and fixtures for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
)

// PrepareDB opens a migrated sqlite database in a temp dir. It is closed when the test ends.
func PrepareDB(t *testing.T) (*sql.DB, *core.Config) {
	t.Helper()
	conf := core.NewTestConfig(t.TempDir())
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db, conf
}

func CreateStudent(t *testing.T, repo student.Repository, id, name, classLevel, stream string, guardianEmail ...string) student.Student {
	t.Helper()
	st := student.Student{
		ID:         id,
		Name:       name,
		ClassLevel: classLevel,
		Stream:     stream,
		CreatedAt:  time.Now().UTC(),
	}
	if len(guardianEmail) > 0 {
		st.GuardianEmail = guardianEmail[0]
	}
	st, err := repo.CreateStudent(context.Background(), st)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

// AddEntry writes an entry straight to the store, bypassing the service's validation.
func AddEntry(t *testing.T, repo ledger.Repository, studentID string, period ledger.Period, et ledger.EntryType, amount string, method ...string) ledger.Entry {
	t.Helper()
	e := ledger.Entry{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Period:      period,
		Type:        et,
		Amount:      decimal.RequireFromString(amount),
		Description: string(et),
		CreatedAt:   time.Now().UTC(),
	}
	if len(method) > 0 {
		e.Method = method[0]
	}
	if err := repo.InsertEntry(context.Background(), e); err != nil {
		t.Fatalf("AddEntry() failed: %v", err)
	}
	return e
}
