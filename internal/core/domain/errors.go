package domain

import "errors"

// Authentication.
var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is reported to callers exactly like ErrInvalidCredentials.
	ErrAccountDisabled = errors.New("account disabled")
)

// Tokens.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Authorization.
var (
	ErrInsufficientRole = errors.New("insufficient role")
	ErrSelfModification = errors.New("cannot modify own account in this way")
)

// Credential store.
var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrUserNotFound      = errors.New("user not found")
	// ErrCredentialChanged means the stored hash no longer matches the one a
	// password change verified against.
	ErrCredentialChanged = errors.New("credential changed concurrently")
)

// Password changes.
var (
	ErrPasswordMismatch     = errors.New("current password is incorrect")
	ErrConfirmationMismatch = errors.New("new password and confirmation do not match")
)

// ErrInvalidInput marks a request the service layer refuses before touching
// the store. Transport-level validation normally catches these first.
var ErrInvalidInput = errors.New("invalid input")
