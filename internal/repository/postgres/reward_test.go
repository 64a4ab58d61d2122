package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/repository"
	"github.com/esimwe/esimnew/internal/testutil"
)

func TestRewardRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			fn(innerTx, NewStorage(innerTx))
		})
	}

	t.Run("CreateEntry", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
			require.NoError(t, err)

			t.Run("append ok", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					entry, err := storage.Reward().CreateEntry(t.Context(), models.RewardEntry{
						UserID:        user.ID,
						Type:          models.RewardTypeBonus,
						Amount:        decimal.NewFromInt(20),
						Description:   "welcome bonus",
						BalanceBefore: decimal.NewFromInt(30),
						BalanceAfter:  decimal.NewFromInt(50),
					})

					require.NoError(t, err)
					require.NotEqual(t, uuid.Nil, entry.ID)
					require.NotZero(t, entry.CreatedAt)
					require.True(t, entry.BalanceAfter.Equal(entry.BalanceBefore.Add(entry.Amount)))
				})
			})

			t.Run("ledger arithmetic enforced by schema", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Reward().CreateEntry(t.Context(), models.RewardEntry{
						UserID:        user.ID,
						Type:          models.RewardTypeBonus,
						Amount:        decimal.NewFromInt(20),
						Description:   "broken row",
						BalanceBefore: decimal.NewFromInt(30),
						BalanceAfter:  decimal.NewFromInt(99),
					})

					require.Error(t, err, "balance_after != balance_before + amount must be rejected")
				})
			})

			t.Run("unknown user rejected", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Reward().CreateEntry(t.Context(), models.RewardEntry{
						UserID:        uuid.New(),
						Type:          models.RewardTypeBonus,
						Amount:        decimal.NewFromInt(1),
						Description:   "orphan",
						BalanceBefore: decimal.Zero,
						BalanceAfter:  decimal.NewFromInt(1),
					})

					require.ErrorIs(t, err, apperrors.ErrUserNotFound)
				})
			})
		})
	})

	t.Run("ListByUser", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
			require.NoError(t, err)

			amounts := []int64{10, 20, 30}
			balance := decimal.Zero
			for _, a := range amounts {
				amount := decimal.NewFromInt(a)
				_, err := storage.Reward().CreateEntry(t.Context(), models.RewardEntry{
					UserID:        user.ID,
					Type:          models.RewardTypeBonus,
					Amount:        amount,
					Description:   "credit",
					BalanceBefore: balance,
					BalanceAfter:  balance.Add(amount),
				})
				require.NoError(t, err)
				balance = balance.Add(amount)
			}

			entries, err := storage.Reward().ListByUser(t.Context(), user.ID)

			require.NoError(t, err)
			require.Len(t, entries, len(amounts))
			// newest first, and the per-user chain is continuous
			for i := 1; i < len(entries); i++ {
				require.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt), "entries must be ordered newest first")
				require.True(t, entries[i].BalanceAfter.Equal(entries[i-1].BalanceBefore), "chain of balances must be continuous")
			}
		})
	})
}

func TestSettingsRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
		storage := NewStorage(tx)

		t.Run("absent settings", func(t *testing.T) {
			_, err := storage.Settings().GetSettings(t.Context())

			require.ErrorIs(t, err, apperrors.ErrSettingsNotFound)
		})

		t.Run("save and read back", func(t *testing.T) {
			saved, err := storage.Settings().SaveSettings(t.Context(), models.DefaultSettings())
			require.NoError(t, err)
			require.Equal(t, 8, saved.ReferralCodeLength)
			require.True(t, saved.ReferralBonusAmount.Equal(decimal.RequireFromString("10.00")))

			// upsert keeps it a singleton
			saved, err = storage.Settings().SaveSettings(t.Context(), models.Settings{
				ReferralCodeLength:  12,
				ReferralBonusAmount: decimal.RequireFromString("5.50"),
			})
			require.NoError(t, err)
			require.Equal(t, 12, saved.ReferralCodeLength)

			got, err := storage.Settings().GetSettings(t.Context())
			require.NoError(t, err)
			require.Equal(t, 12, got.ReferralCodeLength)
			require.True(t, got.ReferralBonusAmount.Equal(decimal.RequireFromString("5.50")))
		})
	})
}
