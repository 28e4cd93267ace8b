package ledger

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type EntryType string

const (
	Bill         EntryType = "Bill"
	Payment      EntryType = "Payment"
	Adjustment   EntryType = "Adjustment"
	CarryForward EntryType = "CarryForward"
)

var EntryTypes = []EntryType{Bill, Payment, Adjustment, CarryForward}

func ParseEntryType(s string) (EntryType, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, et := range EntryTypes {
		if strings.ToLower(string(et)) == key {
			return et, nil
		}
	}
	return "", errors.Errorf("unknown entry type %q", s)
}

func (et EntryType) Valid() bool {
	for _, t := range EntryTypes {
		if t == et {
			return true
		}
	}
	return false
}

// Sign is the direction an entry moves the outstanding balance.
func (et EntryType) Sign() int {
	if et == Payment {
		return -1
	}
	return 1
}

// Payment methods
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodCard     = "card"
	MethodPOS      = "pos"
	MethodCheque   = "cheque"
	MethodBulk     = "bulk"
)

var PaymentMethods = []string{MethodCash, MethodTransfer, MethodCard, MethodPOS, MethodCheque, MethodBulk}

func ValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Entry is one immutable financial event for a student within a period.
type Entry struct {
	ID           string              `json:"id"`
	StudentID    string              `json:"student_id"`
	Period       Period              `json:"period"`
	Type         EntryType           `json:"entry_type"`
	Amount       decimal.Decimal     `json:"amount"`
	Description  string              `json:"description"`
	Method       string              `json:"method,omitempty"`
	BalanceAfter decimal.NullDecimal `json:"balance_after"`
	CreatedAt    time.Time           `json:"created_at"` // UTC
}

// Signed is the entry's contribution to the outstanding balance.
func (e Entry) Signed() decimal.Decimal {
	if e.Type.Sign() < 0 {
		return e.Amount.Neg()
	}
	return e.Amount
}

// NewEntry contains information needed to record a Bill, Payment or Adjustment.
type NewEntry struct {
	StudentID   string
	Period      Period
	Type        EntryType
	Amount      decimal.Decimal
	Description string
	Method      string
}

func (ne *NewEntry) Validate() error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.Description = core.CleanString(ne.Description)
	ne.Method = core.CleanString(ne.Method, true /* lower */)

	var flds []core.FieldError
	if ne.StudentID == "" {
		flds = append(flds, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	if err := ne.Period.Validate(); err != nil {
		flds = append(flds, err.(*core.ValidationError).Fields...)
	}
	switch ne.Type {
	case Bill, Payment:
		if !ne.Amount.IsPositive() {
			flds = append(flds, core.FieldError{Field: "amount", Error: "must be greater than zero"})
		}
	case Adjustment:
		if ne.Amount.IsZero() {
			flds = append(flds, core.FieldError{Field: "amount", Error: "must not be zero"})
		}
	case CarryForward:
		flds = append(flds, core.FieldError{Field: "entry_type", Error: "carry-forward entries are created by the carry-forward run only"})
	default:
		flds = append(flds, core.FieldError{Field: "entry_type", Error: "unknown entry type"})
	}
	if msg := checkAmountBounds(ne.Amount); msg != "" {
		flds = append(flds, core.FieldError{Field: "amount", Error: msg})
	}
	if ne.Type == Payment {
		if ne.Method == "" {
			flds = append(flds, core.FieldError{Field: "method", Error: "this field is required"})
		} else if !ValidPaymentMethod(ne.Method) {
			flds = append(flds, core.FieldError{Field: "method", Error: "unknown payment method"})
		}
	} else if ne.Method != "" {
		flds = append(flds, core.FieldError{Field: "method", Error: "only payments carry a method"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid entry"), flds...)
	}
	return nil
}

// Amounts are stored as NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

func checkAmountBounds(amount decimal.Decimal) string {
	switch {
	case amount.Exponent() < -2 && !amount.Equal(amount.Round(2)):
		return "must have at most 2 decimal places"
	case amount.Abs().GreaterThanOrEqual(maxAmount):
		return "must be less than " + maxAmount.String()
	}
	return ""
}
