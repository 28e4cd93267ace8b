package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics
const (
	TopicCarryForwardCompleted = "ledger.carry_forward.completed"
	TopicSettlementRecorded    = "ledger.settlement.recorded"
)

type (
	CarryForwardCompleted struct {
		From         Period          `json:"from"`
		To           Period          `json:"to"`
		CarriedCount int             `json:"carried_count"`
		TotalAmount  decimal.Decimal `json:"total_amount"`
		StudentIDs   []string        `json:"student_ids"`
		OccurredAt   time.Time       `json:"occurred_at"`
	}

	SettlementRecorded struct {
		EntryID    string          `json:"entry_id"`
		StudentID  string          `json:"student_id"`
		Period     Period          `json:"period"`
		Amount     decimal.Decimal `json:"amount"`
		Method     string          `json:"method"`
		OccurredAt time.Time       `json:"occurred_at"`
	}
)
