package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creativeplayground/accounts/internal/httputil"
	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/ratelimit"
	"github.com/creativeplayground/accounts/internal/requestctx"
	"github.com/creativeplayground/accounts/internal/user"
)

// Theme cookie lives half a year; it is a preference, not a credential.
const themeCookieTTL = 180 * 24 * time.Hour

var validThemes = map[string]bool{"light": true, "dark": true, "system": true}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	engine       *Engine
	sessions     *SessionManager
	codec        *Codec
	rateLimiter  *ratelimit.Limiter
	cookieSecure bool
}

func NewHandler(engine *Engine, sessions *SessionManager, codec *Codec, rateLimiter *ratelimit.Limiter, cookieSecure bool) *Handler {
	return &Handler{
		engine:       engine,
		sessions:     sessions,
		codec:        codec,
		rateLimiter:  rateLimiter,
		cookieSecure: cookieSecure,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ThemeRequest represents the theme preference update
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// Register handles user registration
// @Summary      Register a new account
// @Description  Create a new account with email and password. The account stays inactive until the emailed verification token is consumed.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration credentials"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} ErrorResponse "Email already exists"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := clientIP(r)
	allowed, retryAfter, err := h.rateLimiter.Allow(r.Context(), "register", "origin:"+ip)
	if err != nil {
		logger.Error("failed to check registration rate limit", "error", err.Error())
	} else if !allowed {
		logger.Warn("registration rate limit exceeded", "ip", ip)
		respondRateLimited(w, retryAfter)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.engine.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			respondError(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			respondError(w, "failed to register", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	respondJSON(w, RegisterResponse{
		User:    UserResponse{ID: newUser.ID, Email: newUser.Email},
		Message: "Registration successful. Please check your email to verify your account.",
	}, http.StatusCreated)
}

// Login handles password-path login
// @Summary      Log in with email and password
// @Description  Authenticate with password credentials, establish a session, and optionally issue a remember-me cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      403 {object} ErrorResponse "Account not activated"
// @Failure      429 {object} ErrorResponse "Too many attempts"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.engine.PasswordLogin(r.Context(), LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		Origin:     clientIP(r),
	})
	if err != nil {
		var rateErr *RateLimitedError
		switch {
		case errors.As(err, &rateErr):
			logger.Warn("login rejected: rate limited")
			respondRateLimited(w, rateErr.RetryAfter)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrInactiveAccount):
			logger.Warn("login failed: account not activated")
			respondError(w, "account not activated, please verify your email", httputil.CodeAccountInactive, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if err := h.sessions.Establish(w, result.User); err != nil {
		logger.Error("failed to establish session", "error", err.Error())
		respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if result.RememberCookie != "" {
		SetRememberCookie(w, result.RememberCookie, h.cookieSecure, result.RememberTTL)
	}

	logger.Info("user logged in successfully", "user_id", result.User.ID, "remember_me", req.RememberMe)

	respondJSON(w, map[string]string{"message": "logged in successfully"}, http.StatusOK)
}

// Logout handles logout for the current device
// @Summary      Log out
// @Description  Clear the session and remember-me cookies for this browser.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	h.sessions.Clear(w)

	logger.Info("user logged out")
	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// LogoutEverywhere revokes every remember-me grant for the identity
// @Summary      Log out everywhere
// @Description  Revoke all remember-me tokens for the authenticated account and clear cookies here.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse "Not authenticated"
// @Router       /auth/logout-all [post]
func (h *Handler) LogoutEverywhere(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := requestctx.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.engine.RevokeRememberTokens(r.Context(), userID); err != nil {
		logger.Error("failed to revoke remember-me tokens", "error", err.Error())
		respondError(w, "failed to log out everywhere", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	h.sessions.Clear(w)

	logger.Info("user logged out everywhere", "user_id", userID)
	respondJSON(w, map[string]string{"message": "logged out everywhere"}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Consume the emailed verification token, activating the account. Repeating a spent token reports already-verified.
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid or expired token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		logger.Warn("email verification failed: token missing")
		respondError(w, "verification token required", httputil.CodeVerificationTokenRequired, http.StatusBadRequest)
		return
	}

	err := h.engine.VerifyEmail(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyVerified):
			// Idempotent: a second verification is not an error
			logger.Info("email already verified")
			respondJSON(w, map[string]string{
				"message": "This email is already verified. You can login now.",
			}, http.StatusOK)
		case errors.Is(err, ErrVerificationExpired):
			logger.Warn("email verification failed: token expired")
			respondError(w, "Verification link has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidVerificationToken):
			logger.Warn("email verification failed: invalid token")
			respondError(w, "Invalid verification token.", httputil.CodeVerificationFailed, http.StatusBadRequest)
		default:
			logger.Error("email verification failed: internal error", "error", err.Error())
			respondError(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("email verified successfully")

	respondJSON(w, map[string]string{
		"message": "Email verified successfully. You can now login.",
	}, http.StatusOK)
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Send a fresh verification link, invalidating the previous one. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !h.allowEmailFlow(w, r, req.Email, "resend-verification") {
		return
	}

	_ = h.engine.ResendVerification(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If your email is registered and not verified, a new verification link has been sent.",
	}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !h.allowEmailFlow(w, r, req.Email, "forgot-password") {
		return
	}

	_ = h.engine.RequestPasswordReset(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password using a valid reset token. All remember-me grants are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request or token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.engine.ResetPassword(r.Context(), strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordResetTokenNotFound):
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, map[string]string{
		"message": "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// SetTheme stores the signed theme preference cookie
// @Summary      Set theme preference
// @Description  Persist the UI theme in a signed cookie. A convenience, not a security boundary.
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Param        request body ThemeRequest true "Theme name"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Unknown theme"
// @Router       /me/theme [put]
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !validThemes[req.Theme] {
		respondError(w, "unknown theme", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	signed, err := h.codec.Issue(req.Theme)
	if err != nil {
		logger.Error("failed to sign theme cookie", "error", err.Error())
		respondError(w, "failed to set theme", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	SetThemeCookie(w, signed, h.cookieSecure, themeCookieTTL)

	respondJSON(w, map[string]string{"message": "theme saved", "theme": req.Theme}, http.StatusOK)
}

// allowEmailFlow applies the shared IP limit and per-address cooldown used
// by the email-sending endpoints. Returns false when the response has
// already been written.
func (h *Handler) allowEmailFlow(w http.ResponseWriter, r *http.Request, email, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := clientIP(r)

	allowed, retryAfter, err := h.rateLimiter.Allow(r.Context(), purpose, "origin:"+ip)
	if err != nil {
		logger.Error("failed to check rate limit", "purpose", purpose, "error", err.Error())
		// Continue despite error to avoid blocking legitimate requests
	} else if !allowed {
		logger.Warn("rate limit exceeded", "purpose", purpose, "ip", ip)
		respondRateLimited(w, retryAfter)
		return false
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "purpose", purpose)
		respondError(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	return true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

func respondRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds()+0.5)))
	}
	respondError(w, "too many requests, please try again later", httputil.CodeTooManyAttempts, http.StatusTooManyRequests)
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
