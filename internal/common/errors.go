// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies a failure class shared by every layer of the engine.
type ErrorKind string

const (
	ErrNetwork            ErrorKind = "NETWORK_ERROR"
	ErrTimeout            ErrorKind = "TIMEOUT_ERROR"
	ErrRateLimit          ErrorKind = "RATE_LIMIT_ERROR"
	ErrValidation         ErrorKind = "VALIDATION_ERROR"
	ErrSimulation         ErrorKind = "SIMULATION_FAILURE"
	ErrInsufficientFunds  ErrorKind = "INSUFFICIENT_FUNDS"
	ErrBundleTooLarge     ErrorKind = "BUNDLE_TOO_LARGE"
	ErrInvalidBlockhash   ErrorKind = "INVALID_BLOCKHASH"
	ErrWalletNotConnected ErrorKind = "WALLET_NOT_CONNECTED"
	ErrUnknown            ErrorKind = "UNKNOWN_ERROR"
)

// TradeError is the tagged failure shape returned by the quote and bundle
// layers. Expected failure modes are always returned as a *TradeError, never
// raised; only NETWORK, TIMEOUT and RATE_LIMIT default to retryable.
type TradeError struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

// Error constructors

func NetworkError(msg string) *TradeError {
	return &TradeError{Kind: ErrNetwork, Message: messageOrDefault(msg, "network error"), Retryable: true}
}

func TimeoutError(msg string) *TradeError {
	return &TradeError{Kind: ErrTimeout, Message: messageOrDefault(msg, "operation timed out"), Retryable: true}
}

func RateLimitError(msg string) *TradeError {
	return &TradeError{Kind: ErrRateLimit, Message: messageOrDefault(msg, "rate limit exceeded"), Retryable: true}
}

func ValidationError(msg string) *TradeError {
	return &TradeError{Kind: ErrValidation, Message: messageOrDefault(msg, "validation failed"), Retryable: false}
}

func SimulationError(msg string) *TradeError {
	return &TradeError{Kind: ErrSimulation, Message: messageOrDefault(msg, "simulation failed"), Retryable: false}
}

func InsufficientFundsError(msg string) *TradeError {
	return &TradeError{Kind: ErrInsufficientFunds, Message: messageOrDefault(msg, "insufficient funds"), Retryable: false}
}

func BundleTooLargeError(msg string) *TradeError {
	return &TradeError{Kind: ErrBundleTooLarge, Message: messageOrDefault(msg, "bundle exceeds maximum size"), Retryable: false}
}

func InvalidBlockhashError(msg string) *TradeError {
	return &TradeError{Kind: ErrInvalidBlockhash, Message: messageOrDefault(msg, "blockhash expired or invalid"), Retryable: false}
}

func WalletNotConnectedError(msg string) *TradeError {
	return &TradeError{Kind: ErrWalletNotConnected, Message: messageOrDefault(msg, "wallet not connected"), Retryable: false}
}

func UnknownError(msg string) *TradeError {
	return &TradeError{Kind: ErrUnknown, Message: messageOrDefault(msg, "unknown error"), Retryable: false}
}

// AsTradeError unwraps err into a *TradeError if it carries one.
func AsTradeError(err error) (*TradeError, bool) {
	var te *TradeError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsRetryable reports whether err is a retryable TradeError. Errors outside
// the taxonomy are never retried.
func IsRetryable(err error) bool {
	if te, ok := AsTradeError(err); ok {
		return te.Retryable
	}
	return false
}

// Classify maps an arbitrary provider or relay error into the taxonomy by
// sniffing well-known message patterns, the same way simulation logs are
// parsed. A nil error returns nil; an existing TradeError passes through.
func Classify(err error) *TradeError {
	if err == nil {
		return nil
	}
	if te, ok := AsTradeError(err); ok {
		return te
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return TimeoutError(err.Error())
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"):
		return RateLimitError(err.Error())
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"),
		strings.Contains(msg, "refused"), strings.Contains(msg, "reset"),
		strings.Contains(msg, "unreachable"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "eof"):
		return NetworkError(err.Error())
	case strings.Contains(msg, "insufficient"), strings.Contains(msg, "not enough"):
		return InsufficientFundsError(err.Error())
	case strings.Contains(msg, "blockhash"):
		return InvalidBlockhashError(err.Error())
	case strings.Contains(msg, "slippage"), strings.Contains(msg, "exceededslippage"):
		return ValidationError(err.Error())
	case strings.Contains(msg, "simulation"), strings.Contains(msg, "would fail"):
		return SimulationError(err.Error())
	default:
		return UnknownError(err.Error())
	}
}
