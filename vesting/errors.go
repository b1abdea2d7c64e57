package vesting

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the contract. Callers match them with errors.Is;
// wrapped detail only adds context, never changes the kind.
var (
	ErrInvalidAllocation   = errors.New("InvalidAllocation")
	ErrAlreadyInitialized  = errors.New("AlreadyInitialized")
	ErrBeneficiaryNotFound = errors.New("BeneficiaryNotFound")
	ErrClaimNotAllowed     = errors.New("ClaimNotAllowed")
	ErrUnauthorizedAdmin   = errors.New("UnauthorizedAdmin")
	ErrNoUnclaimedTokens   = errors.New("NoUnclaimedTokens")

	ErrTokenAlreadySet    = errors.New("TokenAlreadySet")
	ErrTokenNotSet        = errors.New("TokenNotSet")
	ErrInvalidUserAddress = errors.New("InvalidUserAddress")

	// Internal invariant violations. Not reachable through the public
	// operations while the escrow invariant holds.
	ErrInsufficientEscrowBalance = errors.New("InsufficientEscrowBalance")
	ErrClaimExceedsAllocation    = errors.New("ClaimExceedsAllocation")
)

type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func ErrInvalidTokenAddress(address string) error {
	return fmt.Errorf("InvalidTokenAddress for address %s", address)
}
