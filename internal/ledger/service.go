package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/model"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

var hundred = decimal.NewFromInt(100)

// Service implements the account ledger operations on top of a Store.
// All input validation lives here; the store assumes validated input.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a ledger service. A nil logger discards logs.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// CreateAccountParams holds the parameters for CreateAccount.
type CreateAccountParams struct {
	Name           string
	Email          string
	InitialDeposit decimal.Decimal
}

// CreateAccount opens a new account. A positive initial deposit is
// recorded as the account's first transaction; zero is allowed and
// leaves the ledger empty.
func (s *Service) CreateAccount(ctx context.Context, params CreateAccountParams) (*model.Account, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, validationf("name must not be empty")
	}
	// Emails are not shape-checked, only required and unique: the
	// stored value is an opaque key.
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return nil, validationf("email must not be empty")
	}
	if params.InitialDeposit.IsNegative() {
		return nil, validationf("initial deposit must not be negative")
	}
	if err := checkScale(params.InitialDeposit); err != nil {
		return nil, err
	}

	account, err := s.store.createAccount(ctx, name, email, params.InitialDeposit)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"email", account.Email,
		"initial_deposit", params.InitialDeposit.String())
	return account, nil
}

// DepositParams holds the parameters for Deposit.
type DepositParams struct {
	AccountID   int64
	Amount      decimal.Decimal
	Description string
}

// Deposit adds funds to an active account and records the transaction.
func (s *Service) Deposit(ctx context.Context, params DepositParams) (*model.Transaction, error) {
	if err := checkAmount(params.Amount); err != nil {
		return nil, err
	}

	description := params.Description
	if description == "" {
		description = model.TypeDeposit.DefaultDescription()
	}

	txn, err := s.store.applyMutation(ctx, params.AccountID, model.TypeDeposit, params.Amount, description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit recorded",
		"account_id", txn.AccountID,
		"transaction_id", txn.ID,
		"amount", txn.Amount.String(),
		"balance", txn.BalanceAfter.String())
	return txn, nil
}

// WithdrawParams holds the parameters for Withdraw.
type WithdrawParams struct {
	AccountID   int64
	Amount      decimal.Decimal
	Description string
}

// Withdraw removes funds from an active account. The withdrawal is
// rejected without side effects when the balance is insufficient.
func (s *Service) Withdraw(ctx context.Context, params WithdrawParams) (*model.Transaction, error) {
	if err := checkAmount(params.Amount); err != nil {
		return nil, err
	}

	description := params.Description
	if description == "" {
		description = model.TypeWithdrawal.DefaultDescription()
	}

	txn, err := s.store.applyMutation(ctx, params.AccountID, model.TypeWithdrawal, params.Amount, description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal recorded",
		"account_id", txn.AccountID,
		"transaction_id", txn.ID,
		"amount", txn.Amount.String(),
		"balance", txn.BalanceAfter.String())
	return txn, nil
}

// GetBalance returns the account with its current balance.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (*model.Account, error) {
	return s.store.getAccount(ctx, accountID)
}

// GetTransactions returns an account's most recent transactions (up to
// the clamped limit, newest first) and its total transaction count.
func (s *Service) GetTransactions(ctx context.Context, accountID int64, limit int) ([]model.Transaction, int, error) {
	return s.store.listTransactions(ctx, accountID, clampLimit(limit))
}

// ListAccounts returns active accounts in creation order, up to the
// clamped limit.
func (s *Service) ListAccounts(ctx context.Context, limit int) ([]model.Account, error) {
	return s.store.listAccounts(ctx, clampLimit(limit))
}

// DumpAccounts returns every account, any status, with no limit.
// Backs the operator dump; API listings go through ListAccounts.
func (s *Service) DumpAccounts(ctx context.Context) ([]model.Account, error) {
	return s.store.dumpAccounts(ctx)
}

// DumpTransactions returns an account's complete history, oldest
// first, with no limit.
func (s *Service) DumpTransactions(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	return s.store.dumpTransactions(ctx, accountID)
}

// clampLimit normalizes a caller-supplied page size. Non-positive
// values fall back to the default; oversized values are capped.
func clampLimit(limit int) int {
	if limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationf("amount must be positive, got %s", amount.String())
	}
	return checkScale(amount)
}

// checkScale rejects amounts finer than whole cents.
func checkScale(amount decimal.Decimal) error {
	cents := amount.Mul(hundred)
	if !cents.Equal(cents.Floor()) {
		return validationf("amount %s has more than two decimal places", amount.String())
	}
	return nil
}
