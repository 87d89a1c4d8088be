package exception

import "errors"

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient available balance")
	ErrOverRelease         = errors.New("ledger: release exceeds locked amount")
	ErrUnknownAccount      = errors.New("ledger: unknown account")
)
