package errors

import "fmt"

var (
	ErrInvalidParticipant = fmt.Errorf("invalid participant")
	ErrEmptyMessage       = fmt.Errorf("empty message")
	ErrMessageTooLong     = fmt.Errorf("message too long")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrSubscriptionFailed = fmt.Errorf("subscription failed")
	ErrNoActiveChannel    = fmt.Errorf("no active channel")

	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUnknownUser        = fmt.Errorf("unknown user")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrEmptyWords  = fmt.Errorf("no censored words have been found")
	ErrWorkerPanic = fmt.Errorf("worker panic")
)
