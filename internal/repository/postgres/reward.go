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

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
)

type RewardRepo struct {
	DB DBTX
}

const rewardColumns = "id, created_at, user_id, type, amount, description, balance_before, balance_after"

const createEntry = `-- name: CreateEntry
INSERT INTO reward_history (id, created_at, user_id, type, amount, description, balance_before, balance_after)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + rewardColumns

// CreateEntry appends one ledger row. Rows are never updated or deleted.
func (r *RewardRepo) CreateEntry(ctx context.Context, entry models.RewardEntry) (models.RewardEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createEntry,
		entry.ID, entry.CreatedAt, entry.UserID, entry.Type,
		entry.Amount, entry.Description, entry.BalanceBefore, entry.BalanceAfter,
	)
	created, err := pgx.CollectOneRow(rows, rowToRewardEntry)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, apperrors.ErrUserNotFound
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listByUser = `-- name: ListByUser
SELECT ` + rewardColumns + ` FROM reward_history
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *RewardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RewardEntry, error) {
	rows, _ := r.DB.Query(ctx, listByUser, userID)

	entries, err := pgx.CollectRows(rows, rowToRewardEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToRewardEntry(row pgx.CollectableRow) (models.RewardEntry, error) {
	var e models.RewardEntry
	err := row.Scan(&e.ID, &e.CreatedAt, &e.UserID, &e.Type, &e.Amount, &e.Description, &e.BalanceBefore, &e.BalanceAfter)
	return e, err
}
