package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/models"
)

// Storage bundles the repositories and lets callers run several of them
// inside one database transaction.
type Storage interface {
	User() UserRepo
	Referral() ReferralRepo
	Reward() RewardRepo
	Settings() SettingsRepo

	// InTx runs fn with a Storage bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Name  string
	Email string
}

type UserRepo interface {
	// Create user. Registration itself is owned by the storefront, this
	// exists for that flow and for tests.
	// Must return apperrors.ErrUserAlreadyExists on duplicated email
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or by the referral code assigned to it
	// Must return apperrors.ErrUserNotFound if no user matches
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (models.User, error)

	// Set the user's referral code
	// Must return apperrors.ErrReferralCodeTaken if another user already
	// holds the code, apperrors.ErrUserNotFound if the user is missing
	SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (models.User, error)

	// Record who referred the user. Writes only when referred_by is still
	// unset; must return apperrors.ErrAlreadyReferred otherwise so an
	// existing referrer is never overwritten
	SetReferredBy(ctx context.Context, userID uuid.UUID, referrerID uuid.UUID) (models.User, error)

	// Latch the first purchase flag. Returns true only for the call that
	// actually flipped it, false when it was already set
	MarkFirstPurchase(ctx context.Context, userID uuid.UUID) (bool, error)

	// Adjust reward_balance by amount (negative to debit) in one guarded
	// statement. Must return apperrors.ErrBalanceInsufficient when the
	// result would go below zero, without mutating anything
	AdjustBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error)
}

type ReferralRepo interface {
	// Record a pending referrer→referred relationship
	// Must return apperrors.ErrReferralExists when the pair is already
	// recorded
	CreateReferral(ctx context.Context, referrerID uuid.UUID, referredID uuid.UUID) (models.Referral, error)

	// Complete every still-pending referral of the pair, setting bonus
	// amount and completion time. Returns the completed rows
	CompletePending(ctx context.Context, referrerID uuid.UUID, referredID uuid.UUID, bonus decimal.Decimal, completedAt time.Time) ([]models.Referral, error)

	// List all referrals made by the user, newest first, joined with a
	// summary of each referred user
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.ReferralDetail, error)

	// Sum of bonus_amount over the user's completed referrals
	TotalEarned(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error)
}

type RewardRepo interface {
	// Append one immutable ledger row
	CreateEntry(ctx context.Context, entry models.RewardEntry) (models.RewardEntry, error)

	// List the user's ledger, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RewardEntry, error)
}

type SettingsRepo interface {
	// Get the settings row
	// Must return apperrors.ErrSettingsNotFound when it was never seeded
	GetSettings(ctx context.Context) (models.Settings, error)

	// Insert or update the singleton settings row
	SaveSettings(ctx context.Context, settings models.Settings) (models.Settings, error)
}
