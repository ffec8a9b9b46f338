package service

import "errors"

// ValidationError describe una entrada rechazada antes de tocar el store.
// Message se devuelve tal cual al cliente.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrDuplicateEmail           = errors.New("user with this email already exists")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrAlreadyVerified          = errors.New("email already verified")
	ErrEmailSendFailure         = errors.New("email send failed")
	ErrRateLimited              = errors.New("rate limited")
	ErrInvalidPlan              = errors.New("invalid subscription plan")

	ErrEmailNotVerified     = errors.New("email not verified")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrCreditsExhausted     = errors.New("free credits exhausted")

	ErrProviderFailure = errors.New("provider failure")
)
