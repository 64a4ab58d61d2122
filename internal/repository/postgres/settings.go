package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/esimwe/esimnew/internal/apperrors"
	"github.com/esimwe/esimnew/internal/models"
)

type SettingsRepo struct {
	DB DBTX
}

const getSettings = `-- name: GetSettings
SELECT referral_code_length, referral_bonus_amount FROM system_settings
`

func (r *SettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	var s models.Settings

	err := r.DB.QueryRow(ctx, getSettings).Scan(&s.ReferralCodeLength, &s.ReferralBonusAmount)

	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, pgx.ErrNoRows):
		return s, apperrors.ErrSettingsNotFound
	default:
		return s, fmt.Errorf("db error: %w", err)
	}
}

const saveSettings = `-- name: SaveSettings
INSERT INTO system_settings (id, referral_code_length, referral_bonus_amount)
VALUES (true, $1, $2)
ON CONFLICT (id) DO UPDATE
SET referral_code_length = EXCLUDED.referral_code_length,
    referral_bonus_amount = EXCLUDED.referral_bonus_amount
RETURNING referral_code_length, referral_bonus_amount
`

func (r *SettingsRepo) SaveSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	var s models.Settings

	err := r.DB.QueryRow(ctx, saveSettings, settings.ReferralCodeLength, settings.ReferralBonusAmount).
		Scan(&s.ReferralCodeLength, &s.ReferralBonusAmount)
	if err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}
