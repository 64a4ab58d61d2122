package reward

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/repository"
	"github.com/esimwe/esimnew/internal/repository/postgres"
	"github.com/esimwe/esimnew/internal/testutil"
)

func TestProcessTransaction(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage), storage)
		})
	}

	newUser := func(t *testing.T, storage repository.Storage, balance int64) models.User {
		t.Helper()
		user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)
		if balance != 0 {
			user, err = storage.User().AdjustBalance(t.Context(), user.ID, decimal.NewFromInt(balance))
			require.NoError(t, err)
		}
		return user
	}

	t.Run("credit", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			user := newUser(t, storage, 30)

			ok, err := s.ProcessTransaction(t.Context(), TransactionParams{
				UserID:      user.ID,
				Amount:      decimal.NewFromInt(20),
				Type:        models.RewardTypeBonus,
				Description: "x",
			})

			require.NoError(t, err)
			require.True(t, ok)

			updated, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.True(t, updated.RewardBalance.Equal(decimal.NewFromInt(50)))

			entries, err := storage.Reward().ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.True(t, entries[0].BalanceBefore.Equal(decimal.NewFromInt(30)))
			require.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(50)))
			require.True(t, entries[0].Amount.Equal(decimal.NewFromInt(20)))
			require.Equal(t, models.RewardTypeBonus, entries[0].Type)
		})
	})

	t.Run("debit ok", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			user := newUser(t, storage, 30)

			ok, err := s.ProcessTransaction(t.Context(), TransactionParams{
				UserID:      user.ID,
				Amount:      decimal.NewFromInt(-30),
				Type:        models.RewardTypePurchase,
				Description: "paid with rewards",
			})

			require.NoError(t, err)
			require.True(t, ok, "spending the whole balance is allowed")

			updated, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.True(t, updated.RewardBalance.IsZero())
		})
	})

	t.Run("insufficient funds", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			user := newUser(t, storage, 30)

			ok, err := s.ProcessTransaction(t.Context(), TransactionParams{
				UserID:      user.ID,
				Amount:      decimal.NewFromInt(-50),
				Type:        models.RewardTypePurchase,
				Description: "too expensive",
			})

			require.NoError(t, err, "insufficient funds is not an error")
			require.False(t, ok)

			updated, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.True(t, updated.RewardBalance.Equal(decimal.NewFromInt(30)), "balance must be unchanged")

			entries, err := storage.Reward().ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			require.Empty(t, entries, "rejected transaction must not write a ledger row")
		})
	})

	t.Run("unknown user", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			_, err := s.ProcessTransaction(t.Context(), TransactionParams{
				UserID:      uuid.New(),
				Amount:      decimal.NewFromInt(10),
				Type:        models.RewardTypeBonus,
				Description: "x",
			})

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("invalid params", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			user := newUser(t, storage, 0)

			for name, params := range map[string]TransactionParams{
				"missing user":   {Amount: decimal.NewFromInt(10), Type: models.RewardTypeBonus, Description: "x"},
				"zero amount":    {UserID: user.ID, Type: models.RewardTypeBonus, Description: "x"},
				"unknown type":   {UserID: user.ID, Amount: decimal.NewFromInt(10), Type: "cashback", Description: "x"},
				"no description": {UserID: user.ID, Amount: decimal.NewFromInt(10), Type: models.RewardTypeBonus},
			} {
				_, err := s.ProcessTransaction(t.Context(), params)
				require.ErrorIs(t, err, apperrors.ErrInvalidInput, "case %q", name)
			}
		})
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		s := NewService(storage)

		user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)

		for _, amount := range []int64{10, -5, 7} {
			ok, err := s.ProcessTransaction(t.Context(), TransactionParams{
				UserID:      user.ID,
				Amount:      decimal.NewFromInt(amount),
				Type:        models.RewardTypeBonus,
				Description: "entry",
			})
			require.NoError(t, err)
			require.True(t, ok)
		}

		entries, err := s.History(t.Context(), user.ID)

		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(12)), "newest entry first")

		_, err = s.History(t.Context(), uuid.Nil)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
