package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrReferralCodeTaken  = errors.New("referral code already assigned to another user")
	ErrCodeSpaceExhausted = errors.New("could not resolve a unique referral code within the attempt budget")
	ErrSelfReferral       = errors.New("users can not refer themselves")
	ErrAlreadyReferred    = errors.New("user already has a referrer")
	ErrReferralExists     = errors.New("referral already recorded for this pair of users")

	ErrBalanceInsufficient = errors.New("insufficient reward balance")

	ErrSettingsNotFound = errors.New("system settings not found")

	ErrInvalidInput = errors.New("invalid input")
)
