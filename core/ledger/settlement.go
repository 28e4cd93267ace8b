package ledger

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

const (
	BulkSettlementDescription = "Bulk settlement"

	receiptTemplate = "settlement_receipt"
)

type SettlementStatus string

const (
	Settled        SettlementStatus = "settled"
	AlreadySettled SettlementStatus = "already_settled"
	SettleFailed   SettlementStatus = "failed"
)

type (
	BulkSettleRequest struct {
		StudentIDs []string
		Period     Period
		Method     string
	}

	StudentSettlement struct {
		StudentID string           `json:"student_id"`
		Status    SettlementStatus `json:"status"`
		Amount    decimal.Decimal  `json:"amount"`
		// NothingOwed separates "never billed" from "billed and already paid" for already settled students.
		NothingOwed bool   `json:"nothing_owed,omitempty"`
		EntryID     string `json:"entry_id,omitempty"`
		Error       string `json:"error,omitempty"`
	}

	SettlementResult struct {
		Period       Period              `json:"period"`
		Method       string              `json:"method"`
		Results      []StudentSettlement `json:"results"`
		SettledCount int                 `json:"settled_count"`
		FailedCount  int                 `json:"failed_count"`
		TotalAmount  decimal.Decimal     `json:"total_amount"`
	}

	receiptData struct {
		StudentName string
		ClassLabel  string
		Term        string
		Session     string
		Amount      string
		Method      string
		EntryID     string
		Outstanding string
	}
)

func (req *BulkSettleRequest) Validate() error {
	req.StudentIDs = core.CleanStrings(req.StudentIDs)
	req.Method = core.CleanString(req.Method, true /* lower */)
	if req.Method == "" {
		req.Method = MethodBulk
	}

	var flds []core.FieldError
	if len(req.StudentIDs) == 0 {
		flds = append(flds, core.FieldError{Field: "student_ids", Error: "at least one student is required"})
	}
	if err := req.Period.Validate(); err != nil {
		flds = append(flds, err.(*core.ValidationError).Fields...)
	}
	if !ValidPaymentMethod(req.Method) {
		flds = append(flds, core.FieldError{Field: "method", Error: "unknown payment method"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid settlement request"), flds...)
	}
	return nil
}

// BulkSettle pays off each student's outstanding balance for the period with a single Payment entry.
// Every student runs in its own transaction so one failure never blocks the others. When any student
// fails the full result is returned together with a *core.PartialBatchError.
func (svc *Service) BulkSettle(ctx context.Context, req BulkSettleRequest) (SettlementResult, error) {
	if err := req.Validate(); err != nil {
		return SettlementResult{}, err
	}

	result := SettlementResult{
		Period:      req.Period,
		Method:      req.Method,
		Results:     make([]StudentSettlement, 0, len(req.StudentIDs)),
		TotalAmount: decimal.Zero,
	}
	var receipts []*core.EmailMessage
	for _, id := range req.StudentIDs {
		st, res := svc.settleStudent(ctx, id, req.Period, req.Method)
		result.Results = append(result.Results, res)

		switch res.Status {
		case Settled:
			result.SettledCount++
			result.TotalAmount = result.TotalAmount.Add(res.Amount)
			svc.publish(ctx, TopicSettlementRecorded, id, SettlementRecorded{
				EntryID:    res.EntryID,
				StudentID:  id,
				Period:     req.Period,
				Amount:     res.Amount,
				Method:     req.Method,
				OccurredAt: NowFunc().UTC(),
			})
			if msg := newReceipt(st, req.Period, req.Method, res); msg != nil {
				receipts = append(receipts, msg)
			}
		case SettleFailed:
			result.FailedCount++
			svc.logger.Error(fmt.Sprintf("bulk settlement %s: student %s failed: %s", req.Period, id, res.Error))
		}
	}

	if len(receipts) > 0 && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(receipts...)
	}

	svc.logger.Info(fmt.Sprintf(
		"bulk settlement %s: settled %d (%s), failed %d of %d",
		req.Period, result.SettledCount, result.TotalAmount, result.FailedCount, len(req.StudentIDs),
	))
	if result.FailedCount > 0 {
		return result, &core.PartialBatchError{Failed: result.FailedCount, Total: len(req.StudentIDs), Result: result}
	}
	return result, nil
}

func (svc *Service) settleStudent(ctx context.Context, studentID string, period Period, method string) (student.Student, StudentSettlement) {
	res := StudentSettlement{StudentID: studentID, Amount: decimal.Zero}

	st, err := svc.lookupStudent(ctx, studentID)
	if err != nil {
		res.Status, res.Error = SettleFailed, err.Error()
		return st, res
	}

	err = svc.tx.Transact(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.LockStudent(ctx, studentID, exec); err != nil {
			return errors.Wrap(err, "locking student")
		}
		entries, err := svc.repo.ListStudentEntries(ctx, studentID, period, exec)
		if err != nil {
			return errors.Wrap(err, "listing student entries")
		}
		bal := Calculate(studentID, period, entries)
		if !bal.Outstanding.IsPositive() {
			res.Status, res.NothingOwed = AlreadySettled, bal.NothingOwed
			return nil
		}

		entry := Entry{
			ID:           newIDFunc(),
			StudentID:    studentID,
			Period:       period,
			Type:         Payment,
			Amount:       bal.Outstanding,
			Description:  BulkSettlementDescription,
			Method:       method,
			BalanceAfter: decimal.NewNullDecimal(decimal.Zero),
			CreatedAt:    NowFunc().UTC(),
		}
		if err := svc.repo.InsertEntry(ctx, entry, exec); err != nil {
			return errors.Wrap(err, "inserting payment")
		}
		res.Status, res.Amount, res.EntryID = Settled, entry.Amount, entry.ID
		return nil
	})
	if err != nil {
		res = StudentSettlement{
			StudentID: studentID,
			Status:    SettleFailed,
			Amount:    decimal.Zero,
			Error:     core.NewStoreError("settling student", err).Error(),
		}
	}
	return st, res
}

// newReceipt builds the guardian's receipt, or nil when the student has no guardian email on file.
func newReceipt(st student.Student, period Period, method string, res StudentSettlement) *core.EmailMessage {
	if st.GuardianEmail == "" {
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: st.Name, Address: st.GuardianEmail}},
		Subject:      fmt.Sprintf("Fee payment receipt: %s %s", st.Name, period),
		TemplateName: receiptTemplate,
		TemplateData: receiptData{
			StudentName: st.Name,
			ClassLabel:  st.ClassLabel(),
			Term:        period.Term.String(),
			Session:     period.Session.String(),
			Amount:      res.Amount.StringFixed(2),
			Method:      method,
			EntryID:     res.EntryID,
			Outstanding: decimal.Zero.StringFixed(2),
		},
	}
}
