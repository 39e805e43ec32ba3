package share

import "errors"

// Sentinel errors for the share core.
var (
	ErrNotFound          = errors.New("share not found")
	ErrPasswordRequired  = errors.New("password required")
	ErrWrongPassword     = errors.New("wrong password")
	ErrConflict          = errors.New("code already in use")
	ErrCapacityExhausted = errors.New("no free codes available")
	ErrInvalidExpiry     = errors.New("expiry must be after creation time")
)
