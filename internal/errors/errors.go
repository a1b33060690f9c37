// Package errors provides custom error types for the Vestra API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Investor errors.
var (
	ErrInvestorNotFound    = &AppError{Code: "INVESTOR_NOT_FOUND", Message: "Investor not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail      = &AppError{Code: "DUPLICATE_EMAIL", Message: "An investor with this email already exists", StatusCode: http.StatusConflict}
	ErrNoActiveInvestment  = &AppError{Code: "NO_ACTIVE_INVESTMENT", Message: "Investor has no active investment plan", StatusCode: http.StatusBadRequest}
	ErrInvestmentEnded     = &AppError{Code: "INVESTMENT_ENDED", Message: "Investment has already been ended", StatusCode: http.StatusConflict}
	ErrUnknownPlan         = &AppError{Code: "UNKNOWN_PLAN", Message: "Unknown portfolio or investment type", StatusCode: http.StatusBadRequest}
	ErrMissingBankDetails  = &AppError{Code: "MISSING_BANK_DETAILS", Message: "Investor bank name or account number is missing", StatusCode: http.StatusBadRequest}
)

// Spending account errors.
var (
	ErrAccountNotFound     = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Spending account not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient spending account balance", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound      = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidStatusTransition  = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Withdrawal status transition is not allowed", StatusCode: http.StatusBadRequest}
	ErrFailureReasonRequired    = &AppError{Code: "FAILURE_REASON_REQUIRED", Message: "A failure reason is required when marking a withdrawal failed", StatusCode: http.StatusBadRequest}
	ErrInvalidTransactionType   = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
)

// Payout gateway errors.
var (
	ErrGatewayFailure   = &AppError{Code: "GATEWAY_FAILURE", Message: "Payout gateway request failed", StatusCode: http.StatusBadGateway}
	ErrBankNotResolved  = &AppError{Code: "BANK_NOT_RESOLVED", Message: "Could not resolve a bank code for the given bank name", StatusCode: http.StatusBadRequest}
	ErrPayoutNotAllowed = &AppError{Code: "PAYOUT_NOT_ALLOWED", Message: "Transaction is not in a payable state", StatusCode: http.StatusBadRequest}
)

// Concurrency errors.
var (
	ErrAccrualInProgress = &AppError{Code: "ACCRUAL_IN_PROGRESS", Message: "Another accrual run is already processing this investor", StatusCode: http.StatusConflict}
	ErrLockUnavailable   = &AppError{Code: "LOCK_UNAVAILABLE", Message: "Failed to acquire processing lock", StatusCode: http.StatusInternalServerError}
)

// Integrity errors.
var (
	ErrIntegrityViolation = &AppError{Code: "INTEGRITY_VIOLATION", Message: "Ledger state is inconsistent and requires manual reconciliation", StatusCode: http.StatusConflict}
)
