package ledger

import "github.com/shopspring/decimal"

type Status string

const (
	StatusPaid        Status = "Paid"
	StatusPartial     Status = "Partial"
	StatusOutstanding Status = "Outstanding"
	StatusPending     Status = "Pending"
)

// PeriodBalance is derived from entries at read time and never stored.
type PeriodBalance struct {
	StudentID   string          `json:"student_id"`
	Period      Period          `json:"period"`
	Billed      decimal.Decimal `json:"billed"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Credit      decimal.Decimal `json:"credit"` // paid (or credited) beyond billed
	Status      Status          `json:"status"`
	NothingOwed bool            `json:"nothing_owed"` // nothing was billed, as opposed to billed and fully paid
}

// Calculate derives a student's balance for a period.
// Bill, CarryForward and (signed) Adjustment entries make up billed; Payment entries make up paid.
// Entries for other students or periods are ignored.
func Calculate(studentID string, period Period, entries []Entry) PeriodBalance {
	billed, paid := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.StudentID != studentID || e.Period != period {
			continue
		}
		switch e.Type {
		case Bill, CarryForward, Adjustment:
			billed = billed.Add(e.Amount)
		case Payment:
			paid = paid.Add(e.Amount)
		}
	}

	net := billed.Sub(paid)
	outstanding, credit := decimal.Zero, decimal.Zero
	if net.IsPositive() {
		outstanding = net
	} else if net.IsNegative() {
		credit = net.Neg()
	}

	return PeriodBalance{
		StudentID:   studentID,
		Period:      period,
		Billed:      billed,
		Paid:        paid,
		Outstanding: outstanding,
		Credit:      credit,
		Status:      deriveStatus(billed, paid, outstanding),
		NothingOwed: !billed.IsPositive(),
	}
}

func deriveStatus(billed, paid, outstanding decimal.Decimal) Status {
	switch {
	case outstanding.IsZero() && billed.IsPositive():
		return StatusPaid
	case paid.IsPositive() && outstanding.IsPositive():
		return StatusPartial
	case outstanding.IsPositive():
		return StatusOutstanding
	default:
		return StatusPending
	}
}
