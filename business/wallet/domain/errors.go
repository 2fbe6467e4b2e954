package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/launchpad-wallet/internal/apperror"
)

// Provider error codes (EIP-1193 / EIP-3326 / MetaMask).
const (
	ProviderCodeUserRejected      = 4001
	ProviderCodeUnauthorized      = 4100
	ProviderCodeUnrecognizedChain = 4902
	ProviderCodeRequestPending    = -32002
)

// Sentinels for errors.Is. Matching is by code, so any normalized error of
// the same kind compares equal.
var (
	ErrNoProvider     = apperror.New(apperror.CodeNoProvider)
	ErrUserRejected   = apperror.New(apperror.CodeUserRejected)
	ErrRequestPending = apperror.New(apperror.CodeRequestPending)
	ErrProvider       = apperror.New(apperror.CodeProviderError)
)

// RPCError is a provider error carrying an EIP-1193 code. It satisfies rpc.Error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode implements rpc.Error.
func (e *RPCError) ErrorCode() int {
	return e.Code
}

var _ rpc.Error = (*RPCError)(nil)

// ProviderCode extracts the provider error code, if any.
func ProviderCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// NormalizeProviderError maps a raw provider failure onto one of the wallet
// error kinds. Errors that are already normalized pass through unchanged.
func NormalizeProviderError(err error, context string) error {
	if err == nil {
		return nil
	}
	switch apperror.GetCode(err) {
	case apperror.CodeNoProvider, apperror.CodeUserRejected,
		apperror.CodeRequestPending, apperror.CodeProviderError:
		return err
	}

	code, _ := ProviderCode(err)
	msg := strings.ToLower(err.Error())

	switch {
	case code == ProviderCodeUserRejected,
		strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"):
		return apperror.New(apperror.CodeUserRejected,
			apperror.WithContext(context), apperror.WithCause(err))

	case code == ProviderCodeRequestPending,
		strings.Contains(msg, "already pending"):
		return apperror.New(apperror.CodeRequestPending,
			apperror.WithContext(context), apperror.WithCause(err))

	default:
		return apperror.New(apperror.CodeProviderError,
			apperror.WithMessage("Wallet provider error: "+err.Error()),
			apperror.WithContext(context), apperror.WithCause(err))
	}
}

// IsUserRejected reports whether err is a normalized user rejection.
func IsUserRejected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}

// IsRequestPending reports whether err is a normalized pending-request error.
func IsRequestPending(err error) bool {
	return errors.Is(err, ErrRequestPending)
}

// IsUnrecognizedChain reports whether the provider rejected a chain switch
// because it does not know the chain.
func IsUnrecognizedChain(err error) bool {
	code, ok := ProviderCode(err)
	return ok && code == ProviderCodeUnrecognizedChain
}
