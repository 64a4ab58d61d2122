package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RewardTypePurchase = "purchase"
	RewardTypeReferral = "referral"
	RewardTypeBonus    = "bonus"
)

// RewardEntry is an immutable ledger row recording a single balance
// mutation. For every row BalanceAfter = BalanceBefore + Amount, and the
// rows of one user chain: BalanceAfter of row N equals BalanceBefore of
// row N+1.
type RewardEntry struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	UserID        uuid.UUID
	Type          string
	Amount        decimal.Decimal
	Description   string
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}
