package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is owned by the storefront's registration flow. This core only
// mutates the referral and balance related fields.
type User struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	Name          string
	Email         string
	ReferralCode  *string
	ReferredBy    *uuid.UUID
	RewardBalance decimal.Decimal
	FirstPurchase bool
}

// DisplayName returns how the user is referenced in ledger descriptions:
// the name when set, the e-mail otherwise.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
