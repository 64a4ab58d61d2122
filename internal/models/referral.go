package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReferralStatusPending   = "pending"
	ReferralStatusCompleted = "completed"
)

// Referral records a referrer→referred relationship created at signup.
// Status moves from pending to completed exactly once, never back.
type Referral struct {
	ID          uuid.UUID
	ReferrerID  uuid.UUID
	ReferredID  uuid.UUID
	Status      string
	BonusAmount decimal.Decimal
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ReferralDetail is a referral joined with a summary of the referred user,
// as shown on the referral dashboard.
type ReferralDetail struct {
	Referral

	ReferredName          string
	ReferredEmail         string
	ReferredSignedUpAt    time.Time
	ReferredFirstPurchase bool
}

// UserReferrals is the dashboard view: all referrals made by a user plus
// the sum of bonuses already paid out.
type UserReferrals struct {
	Referrals   []ReferralDetail
	TotalEarned decimal.Decimal
}
