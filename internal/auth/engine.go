package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/user"
)

// Verification links are valid for 24 hours from the last (re)send.
const verificationTokenTTL = 24 * time.Hour

// UserStore is the credential-store capability surface the engine needs.
// *user.Repository satisfies it; tests use in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, verificationToken string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*user.User, error)
	CheckIfTokenAlreadyUsed(ctx context.Context, token string) (bool, error)
	Activate(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
}

// RateLimiter throttles authentication attempts per purpose and key.
// Allow reports whether the attempt may proceed and, when it may not, how
// long the caller should wait.
type RateLimiter interface {
	Allow(ctx context.Context, purpose, key string) (bool, time.Duration, error)
}

// Mailer delivers account emails. Fire-and-forget from the engine's
// perspective; failures are logged, never retried here.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// RateLimitedError wraps ErrRateLimited with the retry delay
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many authentication attempts, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// LoginInput is the one canonical login request shape. Origin identifies
// the caller (client IP) for rate limiting; presentation concerns like the
// masked-email form for remembered users never reach the engine.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	Origin     string
}

// LoginResult is the engine's decision on a successful authentication.
// It carries everything the HTTP boundary needs to establish the session
// and write cookies; the engine itself never touches transport.
type LoginResult struct {
	User *user.User

	// RememberCookie is the signed opaque token to place in the auth_token
	// cookie, set only when the password path ran with RememberMe. The
	// cookie path never refills it: a remembered visit authenticates with
	// the existing grant, it does not renew it.
	RememberCookie string
	RememberTTL    time.Duration
}

// Engine is the authentication core. It resolves password or cookie
// credentials to a verified identity and decides session establishment and
// cookie issuance. The engine holds no mutable state between requests and
// is safe for concurrent use.
type Engine struct {
	users       UserStore
	remember    RememberTokenStore
	resets      ResetTokenStore
	codec       *Codec
	limiter     RateLimiter
	mailer      Mailer
	logger      *logging.Logger
	rememberTTL time.Duration
}

func NewEngine(
	users UserStore,
	remember RememberTokenStore,
	resets ResetTokenStore,
	codec *Codec,
	limiter RateLimiter,
	mailer Mailer,
	logger *logging.Logger,
	rememberTTL time.Duration,
) *Engine {
	return &Engine{
		users:       users,
		remember:    remember,
		resets:      resets,
		codec:       codec,
		limiter:     limiter,
		mailer:      mailer,
		logger:      logger,
		rememberTTL: rememberTTL,
	}
}

// Register creates a new inactive, unverified account and sends the
// verification email.
func (e *Engine) Register(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	newUser, err := e.users.Create(ctx, user.NormalizeEmail(email), passwordHash, verificationToken)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Send the verification email without blocking registration; the user
	// can request a resend if delivery fails.
	go func() {
		emailCtx := context.Background()
		if err := e.mailer.SendVerificationEmail(emailCtx, newUser.Email, verificationToken); err != nil {
			e.logger.Warn("failed to send verification email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// PasswordLogin authenticates with email and password.
// Unknown email and wrong password fail identically (ErrInvalidCredentials)
// so responses cannot enumerate accounts; an inactive account gets its own
// error. The rate limiter runs before any store lookup or hash work.
func (e *Engine) PasswordLogin(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := user.NormalizeEmail(input.Email)

	if err := e.checkRateLimit(ctx, "email:"+email, "origin:"+input.Origin); err != nil {
		return nil, err
	}

	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	if !existingUser.Active {
		return nil, ErrInactiveAccount
	}

	result := &LoginResult{User: existingUser}

	if input.RememberMe {
		secret, err := e.remember.Issue(ctx, existingUser.ID, e.rememberTTL)
		if err != nil {
			if errors.Is(err, ErrEntropyCollision) {
				e.logger.Error("remember-me token hash collision, check entropy source", "user_id", existingUser.ID)
				return nil, ErrEntropyCollision
			}
			return nil, fmt.Errorf("failed to issue remember-me token: %w", err)
		}

		signed, err := e.codec.Issue(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to sign remember-me token: %w", err)
		}

		result.RememberCookie = signed
		result.RememberTTL = e.rememberTTL
	}

	return result, nil
}

// CookieLogin authenticates with a previously issued remember-me cookie.
// Failures carry distinct kinds for logging but must all collapse to one
// "sign in again" message for the user. The existing grant stays in place;
// no new token is minted on this path.
func (e *Engine) CookieLogin(ctx context.Context, signedToken, origin string) (*LoginResult, error) {
	if err := e.checkRateLimit(ctx, "origin:"+origin); err != nil {
		return nil, err
	}

	secret, err := e.codec.Verify(signedToken, e.rememberTTL)
	if err != nil {
		// ErrTokenExpired or ErrTokenTampered; no session side effects
		return nil, err
	}

	userID, err := e.remember.Resolve(ctx, secret)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to resolve remember-me token: %w", err)
	}

	existingUser, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !existingUser.Active {
		return nil, ErrInactiveAccount
	}

	return &LoginResult{User: existingUser}, nil
}

// checkRateLimit applies the sliding-window limit to each key before any
// credential work. Limiter outages fail open so Redis trouble cannot lock
// everyone out.
func (e *Engine) checkRateLimit(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		allowed, retryAfter, err := e.limiter.Allow(ctx, "login", key)
		if err != nil {
			e.logger.Error("rate limiter check failed", "key", key, "error", err)
			continue
		}
		if !allowed {
			return &RateLimitedError{RetryAfter: retryAfter}
		}
	}
	return nil
}

// VerifyEmail consumes a verification token exactly once: the account
// becomes active and verified. A token that was already spent reports
// ErrAlreadyVerified so the caller can answer idempotently.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	existingUser, err := e.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			alreadyVerified, checkErr := e.users.CheckIfTokenAlreadyUsed(ctx, token)
			if checkErr == nil && alreadyVerified {
				return ErrAlreadyVerified
			}
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("failed to find user by token: %w", err)
	}

	if existingUser.EmailVerificationSentAt == nil {
		return ErrVerificationExpired
	}
	if time.Now().After(existingUser.EmailVerificationSentAt.Add(verificationTokenTTL)) {
		return ErrVerificationExpired
	}

	if err := e.users.Activate(ctx, existingUser.ID); err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	return nil
}

// ResendVerification rotates the verification token and re-sends the email.
// Always returns nil to prevent email enumeration attacks.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	existingUser, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		e.logger.Warn("failed to get user for resend verification", "error", err)
		return nil
	}

	if existingUser.EmailVerified {
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		e.logger.Warn("failed to generate verification token", "error", err)
		return nil
	}

	if err := e.users.UpdateVerificationToken(ctx, existingUser.ID, token); err != nil {
		e.logger.Warn("failed to update verification token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := e.mailer.SendVerificationEmail(emailCtx, existingUser.Email, token); err != nil {
			e.logger.Warn("failed to resend verification email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// RequestPasswordReset initiates the password reset process.
// Always returns nil to prevent email enumeration attacks. Only active,
// verified accounts get a token.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	existingUser, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		e.logger.Warn("failed to get user for password reset", "error", err)
		return nil
	}

	if !existingUser.Active || !existingUser.EmailVerified {
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		e.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := e.resets.Store(ctx, existingUser.ID, token); err != nil {
		e.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := e.mailer.SendPasswordResetEmail(emailCtx, existingUser.Email, token); err != nil {
			e.logger.Warn("failed to send password reset email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
// Every remember-me grant for the identity is revoked, so stolen cookies
// stop working the moment the password changes.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	userID, err := e.resets.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to look up password reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := e.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := e.resets.Delete(ctx, token); err != nil {
		e.logger.Warn("failed to delete password reset token", "error", err)
	}

	if err := e.remember.RevokeAll(ctx, userID); err != nil {
		e.logger.Warn("failed to revoke remember-me tokens after password reset", "error", err)
	}

	return nil
}

// RevokeRememberTokens invalidates every remember-me cookie held by the
// identity (logout everywhere).
func (e *Engine) RevokeRememberTokens(ctx context.Context, userID uuid.UUID) error {
	return e.remember.RevokeAll(ctx, userID)
}
