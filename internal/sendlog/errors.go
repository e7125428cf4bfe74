package sendlog

import "errors"

// Sentinel errors for the send log service layer.
var (
	ErrAttemptNotFound = errors.New("no pending attempt for recipient")
	ErrAlreadyTerminal = errors.New("attempt outcome already recorded")
	ErrNotTerminal     = errors.New("outcome is not terminal")
)
