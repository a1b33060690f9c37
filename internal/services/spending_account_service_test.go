package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"vestra/internal/testutil"
)

func TestSpendingAccountService(t *testing.T) {
	t.Run("get_or_create_is_lazy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSpendingAccountService(db)

		investor := testutil.CreateTestInvestor(t, db)

		account, err := svc.GetOrCreate(nil, investor.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, decimal.Zero, account.Balance, "new account balance")

		again, err := svc.GetOrCreate(nil, investor.ID)
		testutil.AssertNoError(t, err)
		if again.ID != account.ID {
			t.Error("second call should return the same account")
		}
	})

	t.Run("credit_and_debit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSpendingAccountService(db)

		investor := testutil.CreateTestInvestor(t, db)

		_, err := svc.Credit(nil, investor.ID, decimal.NewFromInt(5000))
		testutil.AssertNoError(t, err)

		account, err := svc.Debit(nil, investor.ID, decimal.NewFromInt(2000))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(3000), account.Balance, "balance after debit")
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(2000), account.TotalWithdrawn, "total withdrawn")
	})

	t.Run("debit_rejects_overdraw", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSpendingAccountService(db)

		investor := testutil.CreateTestInvestor(t, db)
		testutil.CreateTestSpendingAccount(t, db, investor.ID, decimal.NewFromInt(1000))

		_, err := svc.Debit(nil, investor.ID, decimal.NewFromInt(1001))
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")
	})

	t.Run("force_debit_skips_checks", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSpendingAccountService(db)

		investor := testutil.CreateTestInvestor(t, db)
		testutil.CreateTestSpendingAccount(t, db, investor.ID, decimal.NewFromInt(1000))

		account, err := svc.ForceDebit(nil, investor.ID, decimal.NewFromInt(2500))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(-1500), account.Balance, "negative balance")
		testutil.AssertDecimalEqual(t, decimal.Zero, account.TotalWithdrawn, "total withdrawn untouched")
	})
}
