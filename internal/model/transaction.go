package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger transactions.
type TransactionType string

const (
	TypeDeposit        TransactionType = "deposit"
	TypeWithdrawal     TransactionType = "withdrawal"
	TypeInitialDeposit TransactionType = "initial_deposit"
)

// DefaultDescription returns the label recorded when the caller
// supplies no description of their own.
func (t TransactionType) DefaultDescription() string {
	switch t {
	case TypeWithdrawal:
		return "Withdrawal"
	case TypeInitialDeposit:
		return "Initial deposit"
	default:
		return "Deposit"
	}
}

// Transaction is a row in the transactions table. The ledger is
// append-only: a transaction is never mutated or deleted after it is
// recorded. BalanceAfter is the account balance immediately after the
// mutation that produced this record.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}
