package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrEmailExists        = errors.New("email_exists")
	ErrTooManyAttempts    = errors.New("too_many_attempts")

	ErrEmailRequired    = errors.New("email_required")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrPasswordRequired = errors.New("password_required")
	ErrFullNameRequired = errors.New("full_name_required")
	ErrPhoneRequired    = errors.New("phone_required")
	ErrPasswordTooShort = errors.New("password_too_short")
	ErrInvalidRole      = errors.New("invalid_role")
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6
