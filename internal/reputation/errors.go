package reputation

import "errors"

// Sentinel errors for the reputation service layer.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRecordNotFound  = errors.New("reputation record not found")
)
