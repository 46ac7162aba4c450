package auth

import "errors"

// Credential and account errors. ErrInvalidCredentials deliberately covers
// both "unknown email" and "wrong password" so responses cannot be used to
// enumerate accounts. ErrInactiveAccount is not secrecy-sensitive and gets
// its own message.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account not activated, please verify your email")
)

// Remember-me token errors. The three failure kinds are logged distinctly
// but collapse to a single "sign in again" message for end users.
var (
	ErrTokenExpired  = errors.New("remember-me token has expired")
	ErrTokenTampered = errors.New("remember-me token signature mismatch")
	ErrTokenNotFound = errors.New("remember-me token not found")

	// ErrEntropyCollision means a freshly generated token secret hashed to
	// an existing row. With 256 random bits that never happens unless the
	// entropy source is broken, so it is fatal and never retried.
	ErrEntropyCollision = errors.New("remember-me token hash collision")
)

// ErrRateLimited rejects an authentication attempt before any credential
// check runs.
var ErrRateLimited = errors.New("too many authentication attempts")

// Registration and verification errors.
var (
	ErrEmailRequired            = errors.New("email is required")
	ErrPasswordRequired         = errors.New("password is required")
	ErrPasswordTooShort         = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat       = errors.New("invalid email format")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrVerificationExpired      = errors.New("verification token has expired")
	ErrAlreadyVerified          = errors.New("email already verified")
)

// ErrPasswordResetTokenNotFound covers unknown, expired, and already-used
// reset tokens alike.
var ErrPasswordResetTokenNotFound = errors.New("password reset token not found")

// Session token errors (see TokenService).
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
