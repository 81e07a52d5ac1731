package ledger

import (
	"errors"
	"fmt"

	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// Sentinel error kinds. Compare with errors.Is; each constructor below
// wraps one of these with the offending account/signature/fingerprint so
// callers can both pattern-match the kind and log the payload.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateSig      = errors.New("duplicate signature")
	ErrLastIDNotFound    = errors.New("fingerprint not found")
	ErrNegativeTokens    = errors.New("negative tokens")
)

// AccountNotFoundError reports that the debit side has no balance entry.
type AccountNotFoundError struct {
	Account walletkey.Account
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAccountNotFound, e.Account)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// InsufficientFundsError reports that an account's balance fell short.
type InsufficientFundsError struct {
	Account walletkey.Account
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInsufficientFunds, e.Account)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// DuplicateSignatureError reports a replayed signature under a fingerprint.
type DuplicateSignatureError struct {
	Signature walletkey.Signature
}

func (e *DuplicateSignatureError) Error() string {
	return fmt.Sprintf("%v", ErrDuplicateSig)
}

func (e *DuplicateSignatureError) Unwrap() error { return ErrDuplicateSig }

// LastIDNotFoundError reports a fingerprint that was never seen or has
// since been evicted from the freshness window.
type LastIDNotFoundError struct {
	Fingerprint Fingerprint
}

func (e *LastIDNotFoundError) Error() string {
	return fmt.Sprintf("%v: %x", ErrLastIDNotFound, e.Fingerprint[:4])
}

func (e *LastIDNotFoundError) Unwrap() error { return ErrLastIDNotFound }

// NegativeTokensError reports a contract that requests a negative debit.
type NegativeTokensError struct{}

func (e *NegativeTokensError) Error() string { return ErrNegativeTokens.Error() }

func (e *NegativeTokensError) Unwrap() error { return ErrNegativeTokens }
