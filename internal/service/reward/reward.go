// Package reward is the balance transaction engine: every mutation of a
// user's reward balance goes through here and lands in the reward_history
// ledger.
package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/repository"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TransactionParams describes one balance mutation. Amount is signed:
// positive credits, negative debits.
type TransactionParams struct {
	UserID      uuid.UUID       `validate:"required"`
	Amount      decimal.Decimal `validate:"required"`
	Type        string          `validate:"required,oneof=purchase referral bonus"`
	Description string          `validate:"required"`
}

type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *Service {
	return &Service{storage: storage}
}

// ProcessTransaction applies the transaction and appends the matching
// ledger row, both inside one database transaction.
//
// Returns (false, nil) when the debit would push the balance below zero:
// insufficient funds is an expected outcome, not a failure. Anything that
// went wrong at the store surfaces as an error.
func (s *Service) ProcessTransaction(ctx context.Context, params TransactionParams) (bool, error) {
	if err := validate.Struct(params); err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err := storage.User().AdjustBalance(ctx, params.UserID, params.Amount)
		if err != nil {
			return err
		}

		_, err = storage.Reward().CreateEntry(ctx, models.RewardEntry{
			UserID:        params.UserID,
			Type:          params.Type,
			Amount:        params.Amount,
			Description:   params.Description,
			BalanceBefore: user.RewardBalance.Sub(params.Amount),
			BalanceAfter:  user.RewardBalance,
		})
		return err
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		return false, nil
	default:
		return false, fmt.Errorf("can't process balance transaction. Err: %w", err)
	}
}

// History returns the user's ledger, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.RewardEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", apperrors.ErrInvalidInput)
	}

	return s.storage.Reward().ListByUser(ctx, userID)
}
