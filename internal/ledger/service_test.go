package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, nil)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCreateAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		InitialDeposit: mustDecimal(t, "500"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", account.Name)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.Equal(t, model.StatusActive, account.Status)
	assert.True(t, account.Balance.Equal(mustDecimal(t, "500")))
	assert.False(t, account.CreatedAt.IsZero())

	// The opening deposit is the account's one and only transaction.
	txns, total, err := svc.GetTransactions(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TypeInitialDeposit, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(mustDecimal(t, "500")))
	assert.True(t, txns[0].BalanceAfter.Equal(mustDecimal(t, "500")))
	assert.Equal(t, "Initial deposit", txns[0].Description)
}

func TestCreateAccountZeroInitialDeposit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:  "Empty Start",
		Email: "empty@example.com",
	})
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())

	txns, total, err := svc.GetTransactions(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, txns)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateAccountParams
	}{
		{"empty name", CreateAccountParams{Email: "a@example.com"}},
		{"blank name", CreateAccountParams{Name: "   ", Email: "a@example.com"}},
		{"empty email", CreateAccountParams{Name: "A"}},
		{"negative initial", CreateAccountParams{Name: "A", Email: "a@example.com", InitialDeposit: mustDecimal(t, "-1")}},
		{"sub-cent initial", CreateAccountParams{Name: "A", Email: "a@example.com", InitialDeposit: mustDecimal(t, "10.005")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, tc.params)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateAccountEmailNotShapeChecked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// The email is an opaque uniqueness key; any non-empty string is
	// accepted.
	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:  "Opaque",
		Email: "not-an-address",
	})
	require.NoError(t, err)
	assert.Equal(t, "not-an-address", account.Email)

	_, err = svc.CreateAccount(ctx, CreateAccountParams{
		Name:  "Second",
		Email: "not-an-address",
	})
	var dupErr *DuplicateAccountError
	assert.ErrorAs(t, err, &dupErr)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountParams{Name: "First", Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, CreateAccountParams{Name: "Second", Email: "dup@example.com"})
	var dupErr *DuplicateAccountError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dup@example.com", dupErr.Email)
	assert.Equal(t, KindDuplicate, KindOf(err))
}

func TestDepositAndWithdraw(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		InitialDeposit: mustDecimal(t, "500"),
	})
	require.NoError(t, err)

	dep, err := svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: mustDecimal(t, "200")})
	require.NoError(t, err)
	assert.True(t, dep.BalanceAfter.Equal(mustDecimal(t, "700")))
	assert.Equal(t, "Deposit", dep.Description)

	// An overdraw attempt must not touch the balance or the ledger.
	_, err = svc.Withdraw(ctx, WithdrawParams{AccountID: account.ID, Amount: mustDecimal(t, "1000")})
	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.True(t, fundsErr.Balance.Equal(mustDecimal(t, "700")))
	assert.True(t, fundsErr.Requested.Equal(mustDecimal(t, "1000")))

	wd, err := svc.Withdraw(ctx, WithdrawParams{
		AccountID:   account.ID,
		Amount:      mustDecimal(t, "300"),
		Description: "Rent",
	})
	require.NoError(t, err)
	assert.True(t, wd.BalanceAfter.Equal(mustDecimal(t, "400")))
	assert.Equal(t, "Rent", wd.Description)

	got, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(mustDecimal(t, "400")))

	// Newest first, and the rejected withdrawal left no trace.
	txns, total, err := svc.GetTransactions(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, txns, 3)
	assert.Equal(t, model.TypeWithdrawal, txns[0].Type)
	assert.Equal(t, model.TypeDeposit, txns[1].Type)
	assert.Equal(t, model.TypeInitialDeposit, txns[2].Type)
}

func TestWithdrawExactBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Exact",
		Email:          "exact@example.com",
		InitialDeposit: mustDecimal(t, "100"),
	})
	require.NoError(t, err)

	txn, err := svc.Withdraw(ctx, WithdrawParams{AccountID: account.ID, Amount: mustDecimal(t, "100")})
	require.NoError(t, err)
	assert.True(t, txn.BalanceAfter.IsZero())
}

func TestAmountValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Amounts",
		Email:          "amounts@example.com",
		InitialDeposit: mustDecimal(t, "100"),
	})
	require.NoError(t, err)

	for _, raw := range []string{"0", "-5", "1.999"} {
		amount := mustDecimal(t, raw)

		_, err = svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: amount})
		assert.Equal(t, KindValidation, KindOf(err), "deposit %s", raw)

		_, err = svc.Withdraw(ctx, WithdrawParams{AccountID: account.ID, Amount: amount})
		assert.Equal(t, KindValidation, KindOf(err), "withdraw %s", raw)
	}

	// Exactly two decimal places is fine.
	_, err = svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: mustDecimal(t, "0.01")})
	assert.NoError(t, err)
}

func TestUnknownAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	amount := mustDecimal(t, "10")

	_, err := svc.Deposit(ctx, DepositParams{AccountID: 42, Amount: amount})
	var notFound *AccountNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(42), notFound.AccountID)

	_, err = svc.Withdraw(ctx, WithdrawParams{AccountID: 42, Amount: amount})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.GetBalance(ctx, 42)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, _, err = svc.GetTransactions(ctx, 42, 10)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestGetTransactionsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:  "Busy",
		Email: "busy@example.com",
	})
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		_, err = svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: mustDecimal(t, "1")})
		require.NoError(t, err)
	}

	// Zero and negative limits fall back to the default page size.
	txns, total, err := svc.GetTransactions(ctx, account.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Len(t, txns, 10)

	txns, _, err = svc.GetTransactions(ctx, account.ID, -3)
	require.NoError(t, err)
	assert.Len(t, txns, 10)

	txns, _, err = svc.GetTransactions(ctx, account.ID, 5)
	require.NoError(t, err)
	assert.Len(t, txns, 5)

	// Oversized limits are capped, not rejected.
	txns, _, err = svc.GetTransactions(ctx, account.ID, 10_000)
	require.NoError(t, err)
	assert.Len(t, txns, 15)
}

func TestListAccounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		account, err := svc.CreateAccount(ctx, CreateAccountParams{
			Name:  fmt.Sprintf("Account %d", i),
			Email: fmt.Sprintf("account%d@example.com", i),
		})
		require.NoError(t, err)
		ids = append(ids, account.ID)
	}

	accounts, err := svc.ListAccounts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, a := range accounts {
		assert.Equal(t, ids[i], a.ID)
	}

	accounts, err = svc.ListAccounts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestDumpBypassesListingLimits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Busy",
		Email:          "busy@example.com",
		InitialDeposit: mustDecimal(t, "1"),
	})
	require.NoError(t, err)
	for i := 0; i < 105; i++ {
		_, err = svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: mustDecimal(t, "1")})
		require.NoError(t, err)
	}

	// GetTransactions caps at 100; the dump path returns everything,
	// oldest first.
	paged, total, err := svc.GetTransactions(ctx, account.ID, 1_000)
	require.NoError(t, err)
	assert.Equal(t, 106, total)
	assert.Len(t, paged, 100)

	full, err := svc.DumpTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, full, 106)
	assert.Equal(t, model.TypeInitialDeposit, full[0].Type)
	assert.Equal(t, model.TypeDeposit, full[105].Type)

	accounts, err := svc.DumpAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, account.ID, accounts[0].ID)
}

func TestConcurrentMutations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountParams{
		Name:           "Contended",
		Email:          "contended@example.com",
		InitialDeposit: mustDecimal(t, "1000"),
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(ctx, DepositParams{AccountID: account.ID, Amount: mustDecimal(t, "7")})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, WithdrawParams{AccountID: account.ID, Amount: mustDecimal(t, "3")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(mustDecimal(t, "1040")), "got %s", got.Balance)

	_, total, err := svc.GetTransactions(ctx, account.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1+2*workers, total)
}
