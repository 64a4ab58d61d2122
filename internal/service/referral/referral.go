// Package referral implements the referral program: code assignment at
// account creation, linking at signup, and bonus payout on the referred
// user's first purchase.
package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/logger"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/referralcode"
	"github.com/esimwe/esimnew/internal/repository"
	"github.com/esimwe/esimnew/internal/service/reward"
)

const defaultMaxAttempts = 10

type Config struct {
	// CodeLength overrides the length from system settings when > 0
	CodeLength int

	// MaxAttempts bounds unique code resolution, defaultMaxAttempts when 0.
	// When the budget runs out resolution fails with ErrCodeSpaceExhausted
	// rather than returning a possibly colliding code.
	MaxAttempts int
}

type Service struct {
	cfg     Config
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage, l logger.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		cfg:     cfg,
		storage: storage,
		logger:  l,
	}
}

// codeLength resolves the configured code length: service config first,
// then system settings, then the seed default.
func (s *Service) codeLength(ctx context.Context) (int, error) {
	if s.cfg.CodeLength > 0 {
		return s.cfg.CodeLength, nil
	}

	settings, err := s.storage.Settings().GetSettings(ctx)
	switch {
	case err == nil:
		return settings.ReferralCodeLength, nil
	case errors.Is(err, apperrors.ErrSettingsNotFound):
		return models.DefaultSettings().ReferralCodeLength, nil
	default:
		return 0, err
	}
}

// bonusAmount resolves the payout per completed referral.
func (s *Service) bonusAmount(ctx context.Context) (decimal.Decimal, error) {
	settings, err := s.storage.Settings().GetSettings(ctx)
	switch {
	case err == nil:
		return settings.ReferralBonusAmount, nil
	case errors.Is(err, apperrors.ErrSettingsNotFound):
		return models.DefaultSettings().ReferralBonusAmount, nil
	default:
		return decimal.Decimal{}, err
	}
}

// ResolveUniqueCode generates candidates until one is not held by any
// user. Fails with apperrors.ErrCodeSpaceExhausted after MaxAttempts.
func (s *Service) ResolveUniqueCode(ctx context.Context) (string, error) {
	length, err := s.codeLength(ctx)
	if err != nil {
		return "", fmt.Errorf("can't read code length from settings. Err: %w", err)
	}

	for range s.cfg.MaxAttempts {
		code := referralcode.Generate(length)

		_, err := s.storage.User().GetUserByReferralCode(ctx, code)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			return code, nil
		case err != nil:
			return "", fmt.Errorf("can't check code uniqueness. Err: %w", err)
		}
		// code taken, try another one
	}

	return "", apperrors.ErrCodeSpaceExhausted
}

// AssignCode resolves a unique code and writes it to the user.
//
// The lookup in ResolveUniqueCode can race with a concurrent assignment, so
// the write relies on the unique index over referral_code and retries with
// a fresh code when it loses.
//
// Callers must check the user has no code yet: assigning twice overwrites
// the previous code.
func (s *Service) AssignCode(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("%w: user id required", apperrors.ErrInvalidInput)
	}

	for range s.cfg.MaxAttempts {
		code, err := s.ResolveUniqueCode(ctx)
		if err != nil {
			return "", err
		}

		_, err = s.storage.User().SetReferralCode(ctx, userID, code)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, apperrors.ErrReferralCodeTaken):
			s.logger.Warn("referral code collided on write, retrying", "user_id", userID)
			continue
		default:
			return "", fmt.Errorf("can't assign referral code. Err: %w", err)
		}
	}

	return "", apperrors.ErrCodeSpaceExhausted
}

// ProcessReferral links a fresh signup to the owner of the given code.
//
// An unknown code returns (false, nil): expired and mistyped codes are
// normal input. A user using their own code gets ErrSelfReferral, a user
// that already has a referrer gets ErrAlreadyReferred.
func (s *Service) ProcessReferral(ctx context.Context, code string, newUserID uuid.UUID) (bool, error) {
	if code == "" || newUserID == uuid.Nil {
		return false, fmt.Errorf("%w: code and user id required", apperrors.ErrInvalidInput)
	}

	referrer, err := s.storage.User().GetUserByReferralCode(ctx, code)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("can't look up referral code. Err: %w", err)
	}

	if referrer.ID == newUserID {
		return false, apperrors.ErrSelfReferral
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.User().SetReferredBy(ctx, newUserID, referrer.ID); err != nil {
			return err
		}

		_, err := storage.Referral().CreateReferral(ctx, referrer.ID, newUserID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("can't link referral. Err: %w", err)
	}

	return true, nil
}

// CompleteFirstPurchase settles the referral after the referred user's
// qualifying purchase: completes the pending referral, credits the referrer
// and latches first_purchase.
//
// Safe to call on every purchase event: users without a referrer, unknown
// users and users already latched are a no-op, and two concurrent events
// for the same user credit at most once.
func (s *Service) CompleteFirstPurchase(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user id required", apperrors.ErrInvalidInput)
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("can't load user. Err: %w", err)
	}

	if user.ReferredBy == nil || user.FirstPurchase {
		return nil
	}

	bonus, err := s.bonusAmount(ctx)
	if err != nil {
		return fmt.Errorf("can't read bonus amount from settings. Err: %w", err)
	}

	referrer, err := s.storage.User().GetUserByID(ctx, *user.ReferredBy)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		// never credit an account that no longer exists
		return nil
	case err != nil:
		return fmt.Errorf("can't load referrer. Err: %w", err)
	}

	return s.storage.InTx(ctx, func(storage repository.Storage) error {
		// The conditional update is the idempotency gate: proceed with the
		// payout only if this call flipped the flag. Rolling back on a
		// later failure unlatches it again, so a crashed payout is
		// recoverable.
		latched, err := storage.User().MarkFirstPurchase(ctx, user.ID)
		if err != nil {
			return err
		}
		if !latched {
			return nil
		}

		completed, err := storage.Referral().CompletePending(ctx, referrer.ID, user.ID, bonus, time.Now())
		if err != nil {
			return err
		}
		if len(completed) != 1 {
			s.logger.Warn("unexpected number of pending referrals for pair",
				"referrer_id", referrer.ID, "referred_id", user.ID, "completed", len(completed))
		}

		engine := reward.NewService(storage)
		ok, err := engine.ProcessTransaction(ctx, reward.TransactionParams{
			UserID:      referrer.ID,
			Amount:      bonus,
			Type:        models.RewardTypeReferral,
			Description: fmt.Sprintf("Bonus for inviting %s", user.DisplayName()),
		})
		if err != nil {
			return err
		}
		if !ok {
			// crediting a positive amount can't lack funds
			return fmt.Errorf("bonus credit of %s rejected for referrer %s", bonus, referrer.ID)
		}

		return nil
	})
}

// ListReferrals returns the user's referral dashboard data: every referral
// they made, newest first, plus the total bonus already earned.
func (s *Service) ListReferrals(ctx context.Context, userID uuid.UUID) (models.UserReferrals, error) {
	var result models.UserReferrals

	if userID == uuid.Nil {
		return result, fmt.Errorf("%w: user id required", apperrors.ErrInvalidInput)
	}

	referrals, err := s.storage.Referral().ListByReferrer(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("can't list referrals. Err: %w", err)
	}

	total, err := s.storage.Referral().TotalEarned(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("can't sum earned bonuses. Err: %w", err)
	}

	result.Referrals = referrals
	result.TotalEarned = total
	return result, nil
}
