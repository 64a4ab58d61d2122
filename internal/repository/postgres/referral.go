package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
)

type ReferralRepo struct {
	DB DBTX
}

const referralColumns = "id, referrer_id, referred_id, status, bonus_amount, created_at, completed_at"

const createReferral = `-- name: CreateReferral
INSERT INTO referrals (id, referrer_id, referred_id, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + referralColumns

func (r *ReferralRepo) CreateReferral(ctx context.Context, referrerID uuid.UUID, referredID uuid.UUID) (models.Referral, error) {
	rows, _ := r.DB.Query(ctx, createReferral, uuid.New(), referrerID, referredID, models.ReferralStatusPending)
	referral, err := pgx.CollectOneRow(rows, rowToReferral)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return referral, apperrors.ErrReferralExists
			case pgerrcode.ForeignKeyViolation:
				return referral, apperrors.ErrUserNotFound
			}
		}

		return referral, fmt.Errorf("db error: %w", err)
	}

	return referral, nil
}

// One statement completes every pending row of the pair. Normally that is
// a single row, but if linking ever produced more they all settle on the
// same bonus and completion time.
const completePending = `-- name: CompletePending
UPDATE referrals SET status = $4, bonus_amount = $3, completed_at = $5
WHERE referrer_id = $1 AND referred_id = $2 AND status = $6
RETURNING ` + referralColumns

func (r *ReferralRepo) CompletePending(ctx context.Context, referrerID uuid.UUID, referredID uuid.UUID, bonus decimal.Decimal, completedAt time.Time) ([]models.Referral, error) {
	rows, _ := r.DB.Query(ctx, completePending,
		referrerID, referredID, bonus,
		models.ReferralStatusCompleted, completedAt, models.ReferralStatusPending,
	)

	completed, err := pgx.CollectRows(rows, rowToReferral)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return completed, nil
}

const listByReferrer = `-- name: ListByReferrer
SELECT r.id, r.referrer_id, r.referred_id, r.status, r.bonus_amount, r.created_at, r.completed_at,
       u.name, u.email, u.created_at, u.first_purchase
FROM referrals r
JOIN users u ON u.id = r.referred_id
WHERE r.referrer_id = $1
ORDER BY r.created_at DESC
`

func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.ReferralDetail, error) {
	rows, _ := r.DB.Query(ctx, listByReferrer, referrerID)

	details, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReferralDetail, error) {
		var d models.ReferralDetail
		err := row.Scan(
			&d.ID, &d.ReferrerID, &d.ReferredID, &d.Status, &d.BonusAmount, &d.CreatedAt, &d.CompletedAt,
			&d.ReferredName, &d.ReferredEmail, &d.ReferredSignedUpAt, &d.ReferredFirstPurchase,
		)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return details, nil
}

const totalEarned = `-- name: TotalEarned
SELECT COALESCE(SUM(bonus_amount), 0) FROM referrals
WHERE referrer_id = $1 AND status = $2
`

func (r *ReferralRepo) TotalEarned(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal

	err := r.DB.QueryRow(ctx, totalEarned, referrerID, models.ReferralStatusCompleted).Scan(&total)
	if err != nil {
		return total, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

func rowToReferral(row pgx.CollectableRow) (models.Referral, error) {
	var r models.Referral
	err := row.Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.Status, &r.BonusAmount, &r.CreatedAt, &r.CompletedAt)
	return r, err
}
