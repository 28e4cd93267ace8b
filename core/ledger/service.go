package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

var (
	NowFunc   = time.Now       // mockable
	newIDFunc = uuid.NewString // mockable

	// errors
	ErrDuplicateCarryForward = errors.New("carry-forward already recorded for this student and period")
)

type (
	// Repository is the ledger entry store. Entries are append-only; DeleteEntries backs the admin reset only.
	// Every method takes an optional executor so it can join the caller's transaction.
	Repository interface {
		ListStudentEntries(ctx context.Context, studentID string, period Period, exec ...core.DBExecutor) ([]Entry, error)
		ListPeriodEntries(ctx context.Context, period Period, exec ...core.DBExecutor) ([]Entry, error)
		// InsertEntries writes the whole batch or nothing.
		// A second CarryForward for the same student and period fails with ErrDuplicateCarryForward.
		InsertEntries(ctx context.Context, entries []Entry, exec ...core.DBExecutor) error
		InsertEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) error
		HasCarryForward(ctx context.Context, studentID string, period Period, exec ...core.DBExecutor) (bool, error)
		// LockStudent serializes writers for one student until the surrounding transaction ends.
		LockStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error
		DeleteEntries(ctx context.Context, period Period, types []EntryType, exec ...core.DBExecutor) (int64, error)
	}

	StudentDirectory interface {
		LookupStudent(ctx context.Context, id string) (student.Student, error)
	}

	ServiceInterface interface {
		GetBalance(ctx context.Context, studentID string, period Period) (PeriodBalance, error)
		GetStatement(ctx context.Context, studentID string, period Period) (Statement, error)
		GetClassSummary(ctx context.Context, period Period) (ClassSummary, error)
		RecordEntry(ctx context.Context, ne NewEntry) (Entry, error)
		CarryForward(ctx context.Context, req CarryForwardRequest) (CarryForwardResult, error)
		BulkSettle(ctx context.Context, req BulkSettleRequest) (SettlementResult, error)
		ResetPeriod(ctx context.Context, period Period, types ...EntryType) (int64, error)
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		students StudentDirectory
		mailSvc  core.EmailService
		events   core.EventPublisher
		logger   core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	students StudentDirectory,
	mailSvc core.EmailService,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		events:   events,
		logger:   logger,
	}
}

func validateStudentID(id string) error {
	if id == "" {
		return core.NewFieldError("student_id", "this field is required")
	}
	return nil
}

// lookupStudent maps the directory's ErrNotFound to a NotFoundError and anything else to a StoreError.
func (svc *Service) lookupStudent(ctx context.Context, id string) (student.Student, error) {
	st, err := svc.students.LookupStudent(ctx, id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, core.NewNotFoundError("student", id)
		}
		return student.Student{}, core.NewStoreError("looking up student", err)
	}
	return st, nil
}

func (svc *Service) GetBalance(ctx context.Context, studentID string, period Period) (PeriodBalance, error) {
	studentID = core.CleanString(studentID)
	if err := validateStudentID(studentID); err != nil {
		return PeriodBalance{}, err
	}
	if err := period.Validate(); err != nil {
		return PeriodBalance{}, err
	}
	if _, err := svc.lookupStudent(ctx, studentID); err != nil {
		return PeriodBalance{}, err
	}

	entries, err := svc.repo.ListStudentEntries(ctx, studentID, period)
	if err != nil {
		return PeriodBalance{}, core.NewStoreError("listing student entries", err)
	}
	return Calculate(studentID, period, entries), nil
}

type (
	StatementLine struct {
		Entry
		// Running is the signed balance after this line; negative means credit.
		Running decimal.Decimal `json:"running"`
	}

	Statement struct {
		Student student.Student `json:"student"`
		Balance PeriodBalance   `json:"balance"`
		Lines   []StatementLine `json:"lines"`
	}
)

// GetStatement lists a student's entries for a period in recording order, with a running balance.
func (svc *Service) GetStatement(ctx context.Context, studentID string, period Period) (Statement, error) {
	studentID = core.CleanString(studentID)
	if err := validateStudentID(studentID); err != nil {
		return Statement{}, err
	}
	if err := period.Validate(); err != nil {
		return Statement{}, err
	}
	st, err := svc.lookupStudent(ctx, studentID)
	if err != nil {
		return Statement{}, err
	}

	entries, err := svc.repo.ListStudentEntries(ctx, studentID, period)
	if err != nil {
		return Statement{}, core.NewStoreError("listing student entries", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	lines := make([]StatementLine, 0, len(entries))
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Signed())
		lines = append(lines, StatementLine{Entry: e, Running: running})
	}

	return Statement{
		Student: st,
		Balance: Calculate(studentID, period, entries),
		Lines:   lines,
	}, nil
}

func (svc *Service) GetClassSummary(ctx context.Context, period Period) (ClassSummary, error) {
	if err := period.Validate(); err != nil {
		return ClassSummary{}, err
	}

	entries, err := svc.repo.ListPeriodEntries(ctx, period)
	if err != nil {
		return ClassSummary{}, core.NewStoreError("listing period entries", err)
	}
	summary, err := Summarize(ctx, period, entries, svc.students)
	if err != nil {
		return ClassSummary{}, core.NewStoreError("summarizing period", err)
	}

	if summary.Dropped > 0 {
		svc.logger.Warn(
			fmt.Sprintf("class summary %s: dropped %d entries of unknown students", period, summary.Dropped),
			map[string]interface{}{"student_ids": summary.DroppedStudents},
		)
	}
	return summary, nil
}

// RecordEntry records a single Bill, Payment or Adjustment. BalanceAfter is the outstanding balance once it is applied.
func (svc *Service) RecordEntry(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := ne.Validate(); err != nil {
		return Entry{}, err
	}
	if _, err := svc.lookupStudent(ctx, ne.StudentID); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:          newIDFunc(),
		StudentID:   ne.StudentID,
		Period:      ne.Period,
		Type:        ne.Type,
		Amount:      ne.Amount,
		Description: ne.Description,
		Method:      ne.Method,
		CreatedAt:   NowFunc().UTC(),
	}

	err := svc.tx.Transact(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.LockStudent(ctx, entry.StudentID, exec); err != nil {
			return errors.Wrap(err, "locking student")
		}
		entries, err := svc.repo.ListStudentEntries(ctx, entry.StudentID, entry.Period, exec)
		if err != nil {
			return errors.Wrap(err, "listing student entries")
		}
		bal := Calculate(entry.StudentID, entry.Period, append(entries, entry))
		entry.BalanceAfter = decimal.NewNullDecimal(bal.Outstanding)
		return errors.Wrap(svc.repo.InsertEntry(ctx, entry, exec), "inserting entry")
	})
	if err != nil {
		return Entry{}, core.NewStoreError("recording entry", err)
	}
	return entry, nil
}

// ResetPeriod deletes a period's entries of the given types. It is destructive and meant for admins only.
func (svc *Service) ResetPeriod(ctx context.Context, period Period, types ...EntryType) (int64, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, core.NewFieldError("types", "at least one entry type is required")
	}
	for _, t := range types {
		if !t.Valid() {
			return 0, core.NewFieldError("types", fmt.Sprintf("unknown entry type %q", t))
		}
	}

	var deleted int64
	err := svc.tx.Transact(ctx, func(exec core.DBExecutor) error {
		var err error
		deleted, err = svc.repo.DeleteEntries(ctx, period, types, exec)
		return errors.Wrap(err, "deleting entries")
	})
	if err != nil {
		return 0, core.NewStoreError("resetting period", err)
	}

	svc.logger.Warn(fmt.Sprintf("period %s reset: deleted %d entries", period, deleted), map[string]interface{}{"types": types})
	return deleted, nil
}

// publish sends an event after commit; failures are logged and never fail the operation.
func (svc *Service) publish(ctx context.Context, topic, key string, payload interface{}) {
	if svc.events == nil {
		return
	}
	if err := svc.events.Publish(ctx, topic, key, payload); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s: %v", topic, err), err)
	}
}
