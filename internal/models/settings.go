package models

import "github.com/shopspring/decimal"

// Settings is the single row of storefront-wide configuration this core
// reads. It is owned externally; defaults apply when the row is absent.
type Settings struct {
	ReferralCodeLength  int
	ReferralBonusAmount decimal.Decimal
}

// Defaults match the values the storefront seeds on a fresh install.
func DefaultSettings() Settings {
	return Settings{
		ReferralCodeLength:  8,
		ReferralBonusAmount: decimal.NewFromFloat(10.00),
	}
}
