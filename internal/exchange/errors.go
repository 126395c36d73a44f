package exchange

import "errors"

// Every failure below aborts the whole call: all state changes from the
// failing call are unwound before the error is returned.
var (
	ErrInvalidAsset         = errors.New("invalid asset identifier")
	ErrPoolNotFound         = errors.New("pool not found")
	ErrPositionNotFound     = errors.New("position not found")
	ErrBelowMinimum         = errors.New("amount below minimum")
	ErrInsufficientPoolSize = errors.New("insufficient pool size")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransferFailed       = errors.New("transfer failed")
	ErrInvalidFee           = errors.New("invalid swap fee")
	ErrReentrantCall        = errors.New("reentrant call rejected")
	ErrInvalidAmount        = errors.New("invalid amount")
)
