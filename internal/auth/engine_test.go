package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/user"
)

// fakeUserStore is an in-memory UserStore for engine tests.
type fakeUserStore struct {
	mu              sync.Mutex
	users           map[uuid.UUID]*user.User
	getByEmailCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*user.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, email, passwordHash, verificationToken string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}

	now := time.Now()
	token := verificationToken
	u := &user.User{
		ID:                      uuid.New(),
		Email:                   email,
		PasswordHash:            passwordHash,
		Active:                  false,
		EmailVerified:           false,
		EmailVerificationToken:  &token,
		EmailVerificationSentAt: &now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getByEmailCalls++
	for _, u := range s.users {
		if u.Email == user.NormalizeEmail(email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *fakeUserStore) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if !u.EmailVerified && u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) CheckIfTokenAlreadyUsed(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.EmailVerified && u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) Activate(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Active = true
	u.EmailVerified = true
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *fakeUserStore) UpdateVerificationToken(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	now := time.Now()
	u.EmailVerificationToken = &token
	u.EmailVerificationSentAt = &now
	return nil
}

// fakeRememberStore keeps grants in memory keyed by token hash.
type fakeRememberStore struct {
	mu         sync.Mutex
	grants     map[string]RememberMeToken
	issueCalls int
	failIssue  error
}

func newFakeRememberStore() *fakeRememberStore {
	return &fakeRememberStore{grants: map[string]RememberMeToken{}}
}

func (s *fakeRememberStore) Issue(_ context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issueCalls++
	if s.failIssue != nil {
		return "", s.failIssue
	}

	secret, err := generateRandomToken()
	if err != nil {
		return "", err
	}
	hash := HashTokenSecret(secret)
	s.grants[hash] = RememberMeToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	return secret, nil
}

func (s *fakeRememberStore) Resolve(_ context.Context, secret string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[HashTokenSecret(secret)]
	if !ok || time.Now().After(grant.ExpiresAt) {
		return uuid.Nil, ErrTokenNotFound
	}
	return grant.UserID, nil
}

func (s *fakeRememberStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, grant := range s.grants {
		if grant.UserID == userID {
			delete(s.grants, hash)
		}
	}
	return nil
}

func (s *fakeRememberStore) DeleteExpired(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, grant := range s.grants {
		if time.Now().After(grant.ExpiresAt) {
			delete(s.grants, hash)
		}
	}
	return nil
}

// fakeResetStore keeps password reset tokens in memory.
type fakeResetStore struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{tokens: map[string]uuid.UUID{}}
}

func (s *fakeResetStore) Store(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *fakeResetStore) Lookup(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	return userID, nil
}

func (s *fakeResetStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *fakeResetStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// fakeLimiter makes rate limiting deterministic in tests.
type fakeLimiter struct {
	mu         sync.Mutex
	allow      bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (l *fakeLimiter) Allow(_ context.Context, purpose, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, purpose+"/"+key)
	return l.allow, l.retryAfter, l.err
}

// fakeMailer records sent emails instead of touching SMTP.
type fakeMailer struct {
	mu            sync.Mutex
	verifications map[string]string // email -> token
	resets        map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verifications: map[string]string{}, resets: map[string]string{}}
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[toEmail] = token
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[toEmail] = token
	return nil
}

func (m *fakeMailer) verificationToken(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.verifications[email]
	return token, ok
}

func (m *fakeMailer) resetToken(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.resets[email]
	return token, ok
}

type engineFixture struct {
	engine   *Engine
	users    *fakeUserStore
	remember *fakeRememberStore
	resets   *fakeResetStore
	limiter  *fakeLimiter
	mailer   *fakeMailer
	codec    *Codec
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	codec, err := NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	f := &engineFixture{
		users:    newFakeUserStore(),
		remember: newFakeRememberStore(),
		resets:   newFakeResetStore(),
		limiter:  &fakeLimiter{allow: true},
		mailer:   newFakeMailer(),
		codec:    codec,
	}
	f.engine = NewEngine(
		f.users, f.remember, f.resets, codec, f.limiter, f.mailer,
		logging.NewLogger(true), 30*24*time.Hour,
	)
	return f
}

// registerActive creates a registered and verified user ready to log in.
func (f *engineFixture) registerActive(t *testing.T, email, password string) *user.User {
	t.Helper()
	ctx := context.Background()

	u, err := f.engine.Register(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, f.users.Activate(ctx, u.ID))

	activated, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	return activated
}

func TestEngine_Register(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, "New.User@Example.COM", "long-enough-password")
	require.NoError(t, err)

	require.Equal(t, "new.user@example.com", u.Email, "email must be stored normalized")
	require.False(t, u.Active, "new accounts start inactive")
	require.False(t, u.EmailVerified)
	require.NotEqual(t, "long-enough-password", u.PasswordHash)

	// The verification email goes out on a goroutine
	require.Eventually(t, func() bool {
		_, ok := f.mailer.verificationToken("new.user@example.com")
		return ok
	}, time.Second, 10*time.Millisecond)

	token, _ := f.mailer.verificationToken("new.user@example.com")
	require.Equal(t, *u.EmailVerificationToken, token)
}

func TestEngine_Register_Validation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "password123", ErrEmailRequired},
		{"bad email", "not-an-email", "password123", ErrInvalidEmailFormat},
		{"empty password", "a@example.com", "", ErrPasswordRequired},
		{"short password", "a@example.com", "short", ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Register(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEngine_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.Register(ctx, "dup@example.com", "password123")
	require.NoError(t, err)

	// Same address with different casing is still a duplicate
	_, err = f.engine.Register(ctx, "DUP@example.com", "password123")
	require.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestEngine_PasswordLogin_Success(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "login@example.com", "password123")

	result, err := f.engine.PasswordLogin(context.Background(), LoginInput{
		Email:    "Login@Example.com",
		Password: "password123",
		Origin:   "203.0.113.7",
	})
	require.NoError(t, err)
	require.Equal(t, u.ID, result.User.ID)
	require.Empty(t, result.RememberCookie, "no remember-me requested, none issued")
}

func TestEngine_PasswordLogin_IndistinguishableFailures(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.registerActive(t, "known@example.com", "password123")
	ctx := context.Background()

	_, unknownErr := f.engine.PasswordLogin(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	_, wrongErr := f.engine.PasswordLogin(ctx, LoginInput{Email: "known@example.com", Password: "wrong-password"})

	// Unknown account and wrong password must be the same error so the
	// response cannot be used to enumerate accounts
	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestEngine_PasswordLogin_InactiveAccount(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.Register(ctx, "pending@example.com", "password123")
	require.NoError(t, err)

	// Correct password, unverified account: the caller learns activation
	// is pending, which is distinct from bad credentials
	_, err = f.engine.PasswordLogin(ctx, LoginInput{Email: "pending@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrInactiveAccount)
}

func TestEngine_PasswordLogin_RateLimited(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.registerActive(t, "limited@example.com", "password123")
	f.limiter.allow = false
	f.limiter.retryAfter = 42 * time.Second

	before := f.users.getByEmailCalls
	_, err := f.engine.PasswordLogin(context.Background(), LoginInput{
		Email:    "limited@example.com",
		Password: "password123",
	})

	require.ErrorIs(t, err, ErrRateLimited)

	var rateErr *RateLimitedError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, 42*time.Second, rateErr.RetryAfter)

	// The limit runs before any credential work touches the store
	require.Equal(t, before, f.users.getByEmailCalls)
}

func TestEngine_PasswordLogin_LimiterOutageFailsOpen(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.registerActive(t, "open@example.com", "password123")
	f.limiter.err = errors.New("redis down")

	_, err := f.engine.PasswordLogin(context.Background(), LoginInput{
		Email:    "open@example.com",
		Password: "password123",
	})
	require.NoError(t, err, "a limiter outage must not lock everyone out")
}

func TestEngine_PasswordLogin_RememberMe(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "remember@example.com", "password123")
	ctx := context.Background()

	result, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "remember@example.com",
		Password:   "password123",
		RememberMe: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RememberCookie)
	require.Equal(t, 30*24*time.Hour, result.RememberTTL)

	// The cookie value is the signed wrapper around the stored secret
	secret, err := f.codec.Verify(result.RememberCookie, time.Hour)
	require.NoError(t, err)

	resolvedID, err := f.remember.Resolve(ctx, secret)
	require.NoError(t, err)
	require.Equal(t, u.ID, resolvedID)

	// Only the hash is persisted, never the plaintext secret
	_, stored := f.remember.grants[HashTokenSecret(secret)]
	require.True(t, stored)
	_, plaintext := f.remember.grants[secret]
	require.False(t, plaintext)
}

func TestEngine_PasswordLogin_EntropyCollisionIsFatal(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.registerActive(t, "collide@example.com", "password123")
	f.remember.failIssue = ErrEntropyCollision

	_, err := f.engine.PasswordLogin(context.Background(), LoginInput{
		Email:      "collide@example.com",
		Password:   "password123",
		RememberMe: true,
	})
	require.ErrorIs(t, err, ErrEntropyCollision)
	require.Equal(t, 1, f.remember.issueCalls, "a collision is surfaced, not retried")
}

func TestEngine_CookieLogin_Success(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "cookie@example.com", "password123")
	ctx := context.Background()

	login, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "cookie@example.com",
		Password:   "password123",
		RememberMe: true,
	})
	require.NoError(t, err)

	grants := len(f.remember.grants)

	result, err := f.engine.CookieLogin(ctx, login.RememberCookie, "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, u.ID, result.User.ID)

	// The cookie path authenticates against the existing grant; it never
	// mints a replacement
	require.Empty(t, result.RememberCookie)
	require.Len(t, f.remember.grants, grants)
}

func TestEngine_CookieLogin_Tampered(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.CookieLogin(ctx, "v4.local.tampered-nonsense", "203.0.113.7")
	require.ErrorIs(t, err, ErrTokenTampered)
}

func TestEngine_CookieLogin_RevokedGrant(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "revoked@example.com", "password123")
	ctx := context.Background()

	login, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "revoked@example.com",
		Password:   "password123",
		RememberMe: true,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.RevokeRememberTokens(ctx, u.ID))

	// The cookie still verifies cryptographically, but the grant is gone
	_, err = f.engine.CookieLogin(ctx, login.RememberCookie, "203.0.113.7")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEngine_CookieLogin_ValidTokenUnknownSecret(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	// Correctly signed by the server, but the secret inside maps to nothing
	signed, err := f.codec.Issue("never-issued-secret")
	require.NoError(t, err)

	_, err = f.engine.CookieLogin(ctx, signed, "203.0.113.7")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEngine_CookieLogin_InactiveUser(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "deact@example.com", "password123")
	ctx := context.Background()

	login, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "deact@example.com",
		Password:   "password123",
		RememberMe: true,
	})
	require.NoError(t, err)

	// Deactivate after the grant was issued
	f.users.mu.Lock()
	f.users.users[u.ID].Active = false
	f.users.mu.Unlock()

	_, err = f.engine.CookieLogin(ctx, login.RememberCookie, "203.0.113.7")
	require.ErrorIs(t, err, ErrInactiveAccount)
}

func TestEngine_CookieLogin_RateLimited(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.limiter.allow = false

	_, err := f.engine.CookieLogin(context.Background(), "anything", "203.0.113.7")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestEngine_VerifyEmail(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, "verify@example.com", "password123")
	require.NoError(t, err)
	token := *u.EmailVerificationToken

	require.NoError(t, f.engine.VerifyEmail(ctx, token))

	verified, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, verified.Active)
	require.True(t, verified.EmailVerified)

	// Verifying again with the spent token is reported as already verified,
	// not as an unknown token
	err = f.engine.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestEngine_VerifyEmail_UnknownToken(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	err := f.engine.VerifyEmail(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestEngine_VerifyEmail_Expired(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, "stale@example.com", "password123")
	require.NoError(t, err)
	token := *u.EmailVerificationToken

	// Age the send timestamp past the verification window
	stale := time.Now().Add(-25 * time.Hour)
	f.users.mu.Lock()
	f.users.users[u.ID].EmailVerificationSentAt = &stale
	f.users.mu.Unlock()

	err = f.engine.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrVerificationExpired)

	unverified, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, unverified.Active)
}

func TestEngine_ResendVerification(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, "resend@example.com", "password123")
	require.NoError(t, err)
	original := *u.EmailVerificationToken

	require.NoError(t, f.engine.ResendVerification(ctx, "resend@example.com"))

	refreshed, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotEqual(t, original, *refreshed.EmailVerificationToken, "resend rotates the token")

	// The old link is dead once a new one is issued
	err = f.engine.VerifyEmail(ctx, original)
	require.ErrorIs(t, err, ErrInvalidVerificationToken)

	require.NoError(t, f.engine.VerifyEmail(ctx, *refreshed.EmailVerificationToken))
}

func TestEngine_ResendVerification_NoEnumeration(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	// Unknown address and already-verified address both succeed silently
	require.NoError(t, f.engine.ResendVerification(ctx, "ghost@example.com"))

	f.registerActive(t, "done@example.com", "password123")
	require.NoError(t, f.engine.ResendVerification(ctx, "done@example.com"))
}

func TestEngine_PasswordReset_FullFlow(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	u := f.registerActive(t, "reset@example.com", "old-password-1")
	ctx := context.Background()

	// Seed a remember-me grant that the reset must revoke
	login, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "reset@example.com",
		Password:   "old-password-1",
		RememberMe: true,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.RequestPasswordReset(ctx, "reset@example.com"))

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = f.mailer.resetToken("reset@example.com")
		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, f.engine.ResetPassword(ctx, token, "new-password-2"))

	// Old password out, new password in
	_, err = f.engine.PasswordLogin(ctx, LoginInput{Email: "reset@example.com", Password: "old-password-1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := f.engine.PasswordLogin(ctx, LoginInput{Email: "reset@example.com", Password: "new-password-2"})
	require.NoError(t, err)
	require.Equal(t, u.ID, result.User.ID)

	// The reset token is single-use
	err = f.engine.ResetPassword(ctx, token, "another-password-3")
	require.ErrorIs(t, err, ErrPasswordResetTokenNotFound)

	// Every outstanding remember-me grant died with the password
	_, err = f.engine.CookieLogin(ctx, login.RememberCookie, "203.0.113.7")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEngine_RequestPasswordReset_OnlyActiveVerified(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.Register(ctx, "unverified@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.engine.RequestPasswordReset(ctx, "unverified@example.com"))
	require.NoError(t, f.engine.RequestPasswordReset(ctx, "ghost@example.com"))

	// Neither produced a usable token
	require.Zero(t, f.resets.count())
}

// TestEngine_RegisterVerifyLoginScenario walks the canonical account
// lifecycle end to end.
func TestEngine_RegisterVerifyLoginScenario(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, "a@x.com", "pw1-long-enough")
	require.NoError(t, err)

	// Cannot log in before verifying
	_, err = f.engine.PasswordLogin(ctx, LoginInput{Email: "a@x.com", Password: "pw1-long-enough"})
	require.ErrorIs(t, err, ErrInactiveAccount)

	require.NoError(t, f.engine.VerifyEmail(ctx, *u.EmailVerificationToken))

	_, err = f.engine.PasswordLogin(ctx, LoginInput{Email: "a@x.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := f.engine.PasswordLogin(ctx, LoginInput{
		Email:      "a@x.com",
		Password:   "pw1-long-enough",
		RememberMe: true,
	})
	require.NoError(t, err)
	require.Equal(t, u.ID, result.User.ID)
	require.NotEmpty(t, result.RememberCookie)
	require.Equal(t, f.engine.rememberTTL, result.RememberTTL)
	require.Len(t, f.remember.grants, 1, "exactly one grant per remember-me login")
}

func TestEngine_ResetPassword_Validation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.engine.ResetPassword(ctx, "token", ""), ErrPasswordRequired)
	require.ErrorIs(t, f.engine.ResetPassword(ctx, "token", "short"), ErrPasswordTooShort)
	require.ErrorIs(t, f.engine.ResetPassword(ctx, "unknown", "password123"), ErrPasswordResetTokenNotFound)
}
