package auth

import (
	"fmt"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

var (
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", shared.ErrNotFound)
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = fmt.Errorf("%w: email already in use", shared.ErrConflict)
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", shared.ErrInvalidCredentials)
	// ErrWrongPassword indicates the current password did not match.
	ErrWrongPassword = fmt.Errorf("%w: current password is incorrect", shared.ErrInvalidCredentials)
)
