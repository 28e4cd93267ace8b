package ledger

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type (
	CarryForwardRequest struct {
		From Period
		To   Period
		// StudentIDs restricts the run to a subset; empty means every student with entries in From.
		StudentIDs []string
	}

	CarryForwardResult struct {
		From         Period          `json:"from"`
		To           Period          `json:"to"`
		CarriedCount int             `json:"carried_count"`
		TotalAmount  decimal.Decimal `json:"total_amount"`
		// Skipped counts students with a balance that already have a carry-forward in To.
		Skipped int     `json:"skipped"`
		Entries []Entry `json:"entries"`
	}
)

func (req *CarryForwardRequest) Validate() error {
	req.StudentIDs = core.CleanStrings(req.StudentIDs)

	var flds []core.FieldError
	if err := req.From.Validate("from"); err != nil {
		flds = append(flds, err.(*core.ValidationError).Fields...)
	}
	if err := req.To.Validate("to"); err != nil {
		flds = append(flds, err.(*core.ValidationError).Fields...)
	}
	if len(flds) == 0 && req.From == req.To {
		flds = append(flds, core.FieldError{Field: "to", Error: "must differ from the source period"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid carry-forward request"), flds...)
	}
	return nil
}

// CarryForwardDescription is the description written on carry-forward entries.
func CarryForwardDescription(from Period) string {
	return fmt.Sprintf("Carry-over from %s %s", from.Session, from.Term)
}

// PlanCarryForward computes the carry-forward entries for every student owing in req.From.
// alreadyCarried reports students that have a carry-forward in req.To already; they are skipped.
func PlanCarryForward(req CarryForwardRequest, entries []Entry, alreadyCarried func(studentID string) (bool, error)) ([]Entry, int, error) {
	var only map[string]struct{}
	if len(req.StudentIDs) > 0 {
		only = make(map[string]struct{}, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			only[id] = struct{}{}
		}
	}

	now := NowFunc().UTC()
	groups, ids := groupByStudent(req.From, entries)
	planned := make([]Entry, 0, len(ids))
	var skipped int
	for _, id := range ids {
		if only != nil {
			if _, ok := only[id]; !ok {
				continue
			}
		}
		bal := Calculate(id, req.From, groups[id])
		if !bal.Outstanding.IsPositive() {
			continue
		}
		carried, err := alreadyCarried(id)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "checking carry-forward for %s", id)
		}
		if carried {
			skipped++
			continue
		}
		planned = append(planned, Entry{
			ID:           newIDFunc(),
			StudentID:    id,
			Period:       req.To,
			Type:         CarryForward,
			Amount:       bal.Outstanding,
			Description:  CarryForwardDescription(req.From),
			BalanceAfter: decimal.NewNullDecimal(bal.Outstanding),
			CreatedAt:    now,
		})
	}
	return planned, skipped, nil
}

// CarryForward moves every outstanding balance of req.From into req.To as CarryForward entries.
// The run is atomic: either every entry is written or none is. Re-running is a no-op for students
// already carried, and the store rejects concurrent duplicates.
func (svc *Service) CarryForward(ctx context.Context, req CarryForwardRequest) (CarryForwardResult, error) {
	if err := req.Validate(); err != nil {
		return CarryForwardResult{}, err
	}

	var planned []Entry
	var skipped int
	err := svc.tx.Transact(ctx, func(exec core.DBExecutor) error {
		entries, err := svc.repo.ListPeriodEntries(ctx, req.From, exec)
		if err != nil {
			return errors.Wrap(err, "listing period entries")
		}
		planned, skipped, err = PlanCarryForward(req, entries, func(studentID string) (bool, error) {
			return svc.repo.HasCarryForward(ctx, studentID, req.To, exec)
		})
		if err != nil {
			return err
		}
		if len(planned) == 0 {
			return nil
		}
		return errors.Wrap(svc.repo.InsertEntries(ctx, planned, exec), "inserting carry-forward entries")
	})
	if err != nil {
		return CarryForwardResult{}, core.NewStoreError("carrying forward balances", err)
	}

	result := CarryForwardResult{
		From:         req.From,
		To:           req.To,
		CarriedCount: len(planned),
		TotalAmount:  decimal.Zero,
		Skipped:      skipped,
		Entries:      planned,
	}
	studentIDs := make([]string, 0, len(planned))
	for _, e := range planned {
		result.TotalAmount = result.TotalAmount.Add(e.Amount)
		studentIDs = append(studentIDs, e.StudentID)
	}

	svc.logger.Info(fmt.Sprintf(
		"carry-forward %s -> %s: carried %d students (%s), skipped %d",
		req.From, req.To, result.CarriedCount, result.TotalAmount, result.Skipped,
	))
	if result.CarriedCount > 0 {
		svc.publish(ctx, TopicCarryForwardCompleted, req.To.String(), CarryForwardCompleted{
			From:         req.From,
			To:           req.To,
			CarriedCount: result.CarriedCount,
			TotalAmount:  result.TotalAmount,
			StudentIDs:   studentIDs,
			OccurredAt:   NowFunc().UTC(),
		})
	}
	return result, nil
}
