package domain

import (
	"time"
)

// BankingTransaction represents a single account movement imported for analysis
type BankingTransaction struct {
	ID        string                 `json:"id" validate:"required"`
	Timestamp time.Time              `json:"timestamp"`
	Amount    float64                `json:"amount" validate:"finite"`
	AccountID string                 `json:"account_id"`
	Type      TransactionType        `json:"type" validate:"oneof=deposit withdrawal transfer"`
	Status    TransactionStatus      `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TransactionType defines the kind of banking transaction
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

// TransactionStatus represents the settlement state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}
