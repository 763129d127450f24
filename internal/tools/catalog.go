package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/model"
)

// currencyCode is reported with every balance. The ledger is single
// currency.
const currencyCode = "USD"

// AccountResult is the wire shape for account-returning tools.
type AccountResult struct {
	AccountID int64           `json:"account_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func accountResult(a *model.Account) AccountResult {
	return AccountResult{
		AccountID: a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Balance:   a.Balance,
		Currency:  currencyCode,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

// MutationResult is the wire shape for deposit and withdraw.
type MutationResult struct {
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

func mutationResult(txn *model.Transaction) MutationResult {
	return MutationResult{
		TransactionID: txn.ID,
		AccountID:     txn.AccountID,
		Type:          string(txn.Type),
		Amount:        txn.Amount,
		NewBalance:    txn.BalanceAfter,
		Currency:      currencyCode,
		Description:   txn.Description,
		CreatedAt:     txn.CreatedAt,
	}
}

// TransactionEntry is one row in a transaction history result.
type TransactionEntry struct {
	TransactionID int64           `json:"transaction_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionsResult is the wire shape for get_transactions. Total is
// the account's full transaction count, not the page size.
type TransactionsResult struct {
	AccountID    int64              `json:"account_id"`
	Total        int                `json:"total"`
	Transactions []TransactionEntry `json:"transactions"`
}

// AccountListResult is the wire shape for list_accounts.
type AccountListResult struct {
	Count    int             `json:"count"`
	Accounts []AccountResult `json:"accounts"`
}

type createAccountArgs struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
}

type mutationArgs struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type accountArgs struct {
	AccountID int64 `json:"account_id"`
}

type historyArgs struct {
	AccountID int64 `json:"account_id"`
	Limit     int   `json:"limit"`
}

type listArgs struct {
	Limit int `json:"limit"`
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ledger.ValidationError{Reason: "malformed arguments: " + err.Error()}
	}
	return nil
}

// NewRegistry builds the banking tool catalog on top of a ledger
// service.
func NewRegistry(svc *ledger.Service) *Registry {
	accountIDProp := Property{
		Type:        "integer",
		Description: "Account ID returned by create_account",
	}
	limitProp := Property{
		Type:        "integer",
		Description: "Maximum number of results, between 1 and 100 (default 10)",
	}

	return newRegistry([]*Tool{
		{
			Name:        "create_account",
			Description: "Open a new bank account, optionally funding it with an initial deposit.",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"name":            {Type: "string", Description: "Account holder's full name"},
					"email":           {Type: "string", Description: "Account holder's email, unique per account"},
					"initial_deposit": {Type: "number", Description: "Opening balance, zero or more (default 0)"},
				},
				Required: []string{"name", "email"},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args createAccountArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				account, err := svc.CreateAccount(ctx, ledger.CreateAccountParams{
					Name:           args.Name,
					Email:          args.Email,
					InitialDeposit: args.InitialDeposit,
				})
				if err != nil {
					return nil, err
				}
				return accountResult(account), nil
			},
		},
		{
			Name:        "deposit",
			Description: "Deposit funds into an account.",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"account_id":  accountIDProp,
					"amount":      {Type: "number", Description: "Amount to deposit, positive with at most two decimal places"},
					"description": {Type: "string", Description: "Optional note recorded with the transaction"},
				},
				Required: []string{"account_id", "amount"},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args mutationArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				txn, err := svc.Deposit(ctx, ledger.DepositParams{
					AccountID:   args.AccountID,
					Amount:      args.Amount,
					Description: args.Description,
				})
				if err != nil {
					return nil, err
				}
				return mutationResult(txn), nil
			},
		},
		{
			Name:        "withdraw",
			Description: "Withdraw funds from an account. Fails without side effects if the balance is insufficient.",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"account_id":  accountIDProp,
					"amount":      {Type: "number", Description: "Amount to withdraw, positive with at most two decimal places"},
					"description": {Type: "string", Description: "Optional note recorded with the transaction"},
				},
				Required: []string{"account_id", "amount"},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args mutationArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				txn, err := svc.Withdraw(ctx, ledger.WithdrawParams{
					AccountID:   args.AccountID,
					Amount:      args.Amount,
					Description: args.Description,
				})
				if err != nil {
					return nil, err
				}
				return mutationResult(txn), nil
			},
		},
		{
			Name:        "get_balance",
			Description: "Get an account's current balance and details.",
			ReadOnly:    true,
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"account_id": accountIDProp,
				},
				Required: []string{"account_id"},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args accountArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				account, err := svc.GetBalance(ctx, args.AccountID)
				if err != nil {
					return nil, err
				}
				return accountResult(account), nil
			},
		},
		{
			Name:        "get_transactions",
			Description: "Get an account's most recent transactions, newest first.",
			ReadOnly:    true,
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"account_id": accountIDProp,
					"limit":      limitProp,
				},
				Required: []string{"account_id"},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args historyArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				txns, total, err := svc.GetTransactions(ctx, args.AccountID, args.Limit)
				if err != nil {
					return nil, err
				}
				entries := make([]TransactionEntry, 0, len(txns))
				for _, txn := range txns {
					entries = append(entries, TransactionEntry{
						TransactionID: txn.ID,
						Type:          string(txn.Type),
						Amount:        txn.Amount,
						BalanceAfter:  txn.BalanceAfter,
						Description:   txn.Description,
						CreatedAt:     txn.CreatedAt,
					})
				}
				return TransactionsResult{
					AccountID:    args.AccountID,
					Total:        total,
					Transactions: entries,
				}, nil
			},
		},
		{
			Name:        "list_accounts",
			Description: "List active accounts in creation order.",
			ReadOnly:    true,
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"limit": limitProp,
				},
			},
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args listArgs
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				accounts, err := svc.ListAccounts(ctx, args.Limit)
				if err != nil {
					return nil, err
				}
				results := make([]AccountResult, 0, len(accounts))
				for i := range accounts {
					results = append(results, accountResult(&accounts[i]))
				}
				return AccountListResult{Count: len(results), Accounts: results}, nil
			},
		},
	})
}
