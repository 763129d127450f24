package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/model"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/sqlitepool"
)

// schema is applied to every new connection. Creation is idempotent so
// an existing database file is reused as-is.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	balance    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id    INTEGER NOT NULL REFERENCES accounts(id),
	type          TEXT NOT NULL,
	amount        TEXT NOT NULL,
	balance_after TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account
	ON transactions (account_id, id);
`

// Store owns the SQLite file holding the accounts and transactions
// tables. Every mutating method runs as a single IMMEDIATE transaction
// so the check-then-write sequence is serialized by the database's
// write lock: concurrent withdrawals against the same account cannot
// interleave between the balance check and the update.
type Store struct {
	pool *sqlitepool.Pool
}

// StoreConfig holds the parameters for opening a store.
type StoreConfig struct {
	// Path is the database file path. Created if missing.
	Path string

	// PoolSize is the connection pool size. Defaults to 4.
	PoolSize int

	// Logger receives pool lifecycle messages. Nil means discard.
	Logger *slog.Logger
}

// OpenStore opens (creating if necessary) the database file and
// applies the schema. The caller must Close the store at shutdown.
func OpenStore(cfg StoreConfig) (*Store, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}

	// Connections open lazily; take one now so the database file is
	// created and the schema applied before the first request.
	conn, err := pool.Take(context.Background())
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ledger store: opening database: %w", err)
	}
	pool.Put(conn)

	return &Store{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// createAccount inserts the account row and, when the initial deposit
// is positive, its initial_deposit transaction — atomically. The email
// uniqueness check runs inside the same transaction; the UNIQUE index
// is the backstop.
func (s *Store) createAccount(ctx context.Context, name, email string, initial decimal.Decimal) (account *model.Account, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: create account: %w", err)
	}
	defer s.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("ledger store: begin transaction: %w", err)
	}
	defer endTx(&err)

	taken := false
	err = sqlitex.Execute(conn, "SELECT 1 FROM accounts WHERE email = ?", &sqlitex.ExecOptions{
		Args: []any{email},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			taken = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: checking email: %w", err)
	}
	if taken {
		return nil, &DuplicateAccountError{Email: email}
	}

	now := time.Now().UTC()
	err = sqlitex.Execute(conn,
		"INSERT INTO accounts (name, email, balance, status, created_at) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{name, email, initial.String(), string(model.StatusActive), now.Format(time.RFC3339Nano)},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: inserting account: %w", err)
	}
	accountID := conn.LastInsertRowID()

	if initial.IsPositive() {
		err = insertTransaction(conn, accountID, model.TypeInitialDeposit, initial, initial,
			model.TypeInitialDeposit.DefaultDescription(), now)
		if err != nil {
			return nil, err
		}
	}

	return &model.Account{
		ID:        accountID,
		Name:      name,
		Email:     email,
		Balance:   initial,
		Status:    model.StatusActive,
		CreatedAt: now,
	}, nil
}

// applyMutation performs a deposit or withdrawal as one atomic unit:
// look up the active account, check funds for withdrawals, update the
// balance, and append the transaction record. Either all of it commits
// or none of it does.
func (s *Store) applyMutation(ctx context.Context, accountID int64, typ model.TransactionType, amount decimal.Decimal, description string) (txn *model.Transaction, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: %s: %w", typ, err)
	}
	defer s.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("ledger store: begin transaction: %w", err)
	}
	defer endTx(&err)

	var balance decimal.Decimal
	found := false
	err = sqlitex.Execute(conn,
		"SELECT balance FROM accounts WHERE id = ? AND status = ?",
		&sqlitex.ExecOptions{
			Args: []any{accountID, string(model.StatusActive)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var parseErr error
				balance, parseErr = decimal.NewFromString(stmt.ColumnText(0))
				return parseErr
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: reading balance: %w", err)
	}
	if !found {
		return nil, &AccountNotFoundError{AccountID: accountID}
	}

	var newBalance decimal.Decimal
	switch typ {
	case model.TypeWithdrawal:
		if balance.LessThan(amount) {
			return nil, &InsufficientFundsError{Balance: balance, Requested: amount}
		}
		newBalance = balance.Sub(amount)
	default:
		newBalance = balance.Add(amount)
	}

	err = sqlitex.Execute(conn, "UPDATE accounts SET balance = ? WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{newBalance.String(), accountID},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: updating balance: %w", err)
	}

	now := time.Now().UTC()
	if err = insertTransaction(conn, accountID, typ, amount, newBalance, description, now); err != nil {
		return nil, err
	}

	return &model.Transaction{
		ID:           conn.LastInsertRowID(),
		AccountID:    accountID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  description,
		CreatedAt:    now,
	}, nil
}

func insertTransaction(conn *sqlite.Conn, accountID int64, typ model.TransactionType, amount, balanceAfter decimal.Decimal, description string, at time.Time) error {
	err := sqlitex.Execute(conn,
		`INSERT INTO transactions (account_id, type, amount, balance_after, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{accountID, string(typ), amount.String(), balanceAfter.String(),
				description, at.Format(time.RFC3339Nano)},
		})
	if err != nil {
		return fmt.Errorf("ledger store: inserting transaction: %w", err)
	}
	return nil
}

// getAccount returns an account by ID regardless of status, so balance
// lookups keep working for accounts that were closed out-of-band.
func (s *Store) getAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: get account: %w", err)
	}
	defer s.pool.Put(conn)

	var account *model.Account
	err = sqlitex.Execute(conn,
		"SELECT id, name, email, balance, status, created_at FROM accounts WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{accountID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				a, scanErr := scanAccount(stmt)
				account = a
				return scanErr
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: reading account: %w", err)
	}
	if account == nil {
		return nil, &AccountNotFoundError{AccountID: accountID}
	}
	return account, nil
}

// listTransactions returns up to limit transactions for an account,
// newest first, plus the account's total transaction count.
func (s *Store) listTransactions(ctx context.Context, accountID int64, limit int) ([]model.Transaction, int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger store: list transactions: %w", err)
	}
	defer s.pool.Put(conn)

	exists := false
	err = sqlitex.Execute(conn, "SELECT 1 FROM accounts WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{accountID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ledger store: checking account: %w", err)
	}
	if !exists {
		return nil, 0, &AccountNotFoundError{AccountID: accountID}
	}

	transactions := []model.Transaction{}
	err = sqlitex.Execute(conn,
		`SELECT id, account_id, type, amount, balance_after, description, created_at
		 FROM transactions WHERE account_id = ? ORDER BY id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{accountID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				txn, scanErr := scanTransaction(stmt)
				if scanErr != nil {
					return scanErr
				}
				transactions = append(transactions, *txn)
				return nil
			},
		})
	if err != nil {
		return nil, 0, fmt.Errorf("ledger store: reading transactions: %w", err)
	}

	total := 0
	err = sqlitex.Execute(conn, "SELECT count(*) FROM transactions WHERE account_id = ?", &sqlitex.ExecOptions{
		Args: []any{accountID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			total = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ledger store: counting transactions: %w", err)
	}

	return transactions, total, nil
}

// listAccounts returns up to limit active accounts ordered by ID.
func (s *Store) listAccounts(ctx context.Context, limit int) ([]model.Account, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: list accounts: %w", err)
	}
	defer s.pool.Put(conn)

	accounts := []model.Account{}
	err = sqlitex.Execute(conn,
		`SELECT id, name, email, balance, status, created_at
		 FROM accounts WHERE status = ? ORDER BY id ASC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{string(model.StatusActive), limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				a, scanErr := scanAccount(stmt)
				if scanErr != nil {
					return scanErr
				}
				accounts = append(accounts, *a)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: reading accounts: %w", err)
	}
	return accounts, nil
}

// dumpAccounts returns every account row in creation order, any
// status, no limit. Operator dump path only.
func (s *Store) dumpAccounts(ctx context.Context) ([]model.Account, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: dump accounts: %w", err)
	}
	defer s.pool.Put(conn)

	accounts := []model.Account{}
	err = sqlitex.Execute(conn,
		"SELECT id, name, email, balance, status, created_at FROM accounts ORDER BY id ASC",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				a, scanErr := scanAccount(stmt)
				if scanErr != nil {
					return scanErr
				}
				accounts = append(accounts, *a)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: reading accounts: %w", err)
	}
	return accounts, nil
}

// dumpTransactions returns an account's full history oldest first,
// no limit. Operator dump path only.
func (s *Store) dumpTransactions(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger store: dump transactions: %w", err)
	}
	defer s.pool.Put(conn)

	transactions := []model.Transaction{}
	err = sqlitex.Execute(conn,
		`SELECT id, account_id, type, amount, balance_after, description, created_at
		 FROM transactions WHERE account_id = ? ORDER BY id ASC`,
		&sqlitex.ExecOptions{
			Args: []any{accountID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				txn, scanErr := scanTransaction(stmt)
				if scanErr != nil {
					return scanErr
				}
				transactions = append(transactions, *txn)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("ledger store: reading transactions: %w", err)
	}
	return transactions, nil
}

func scanAccount(stmt *sqlite.Stmt) (*model.Account, error) {
	balance, err := decimal.NewFromString(stmt.ColumnText(3))
	if err != nil {
		return nil, fmt.Errorf("ledger store: parsing balance: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(5))
	if err != nil {
		return nil, fmt.Errorf("ledger store: parsing created_at: %w", err)
	}
	return &model.Account{
		ID:        stmt.ColumnInt64(0),
		Name:      stmt.ColumnText(1),
		Email:     stmt.ColumnText(2),
		Balance:   balance,
		Status:    model.AccountStatus(stmt.ColumnText(4)),
		CreatedAt: createdAt,
	}, nil
}

func scanTransaction(stmt *sqlite.Stmt) (*model.Transaction, error) {
	amount, err := decimal.NewFromString(stmt.ColumnText(3))
	if err != nil {
		return nil, fmt.Errorf("ledger store: parsing amount: %w", err)
	}
	balanceAfter, err := decimal.NewFromString(stmt.ColumnText(4))
	if err != nil {
		return nil, fmt.Errorf("ledger store: parsing balance_after: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(6))
	if err != nil {
		return nil, fmt.Errorf("ledger store: parsing created_at: %w", err)
	}
	return &model.Transaction{
		ID:           stmt.ColumnInt64(0),
		AccountID:    stmt.ColumnInt64(1),
		Type:         model.TransactionType(stmt.ColumnText(2)),
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  stmt.ColumnText(5),
		CreatedAt:    createdAt,
	}, nil
}
