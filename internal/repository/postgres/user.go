package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = "id, created_at, name, email, referral_code, referred_by, reward_balance, first_purchase"

const createUser = `-- name: CreateUser
INSERT INTO users (id, name, email)
VALUES ($1, $2, $3)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), arg.Name, arg.Email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByReferralCode = `-- name: GetUserByReferralCode
SELECT ` + userColumns + ` FROM users
WHERE referral_code = $1
`

func (r *UserRepo) GetUserByReferralCode(ctx context.Context, code string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByReferralCode, code)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setReferralCode = `-- name: SetReferralCode
UPDATE users SET referral_code = $2
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setReferralCode, userID, code)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrReferralCodeTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}
}

// Writes only when referred_by is still NULL, so a referrer is never
// overwritten even under concurrent signups
const setReferredBy = `-- name: SetReferredBy
UPDATE users SET referred_by = $2
WHERE id = $1 AND referred_by IS NULL
RETURNING ` + userColumns

func (r *UserRepo) SetReferredBy(ctx context.Context, userID uuid.UUID, referrerID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setReferredBy, userID, referrerID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		// No row matched: either the user is missing or it already has a
		// referrer. Look it up once to tell the two apart.
		existing, getErr := r.GetUserByID(ctx, userID)
		if getErr != nil {
			return user, getErr
		}
		return existing, apperrors.ErrAlreadyReferred
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

// Conditional update is the idempotency latch: of two concurrent purchase
// events only one can see first_purchase = false
const markFirstPurchase = `-- name: MarkFirstPurchase
UPDATE users SET first_purchase = true
WHERE id = $1 AND first_purchase = false
`

func (r *UserRepo) MarkFirstPurchase(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, markFirstPurchase, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Single guarded statement: the read-modify-write happens inside the
// database, so concurrent adjustments can not lose updates, and a debit
// below zero simply matches no row
const adjustBalance = `-- name: AdjustBalance
UPDATE users SET reward_balance = reward_balance + $2
WHERE id = $1 AND reward_balance + $2 >= 0
RETURNING ` + userColumns

func (r *UserRepo) AdjustBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, adjustBalance, userID, amount)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, getErr := r.GetUserByID(ctx, userID)
		if getErr != nil {
			return user, getErr
		}
		return existing, apperrors.ErrBalanceInsufficient
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.ReferralCode, &u.ReferredBy, &u.RewardBalance, &u.FirstPurchase)
	return u, err
}
