package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/creativeplayground/accounts/internal/user"
)

// SessionManager is the session half of the session/cookie boundary: it
// turns an authenticated identity into a session cookie and back. The
// engine decides who is authenticated; this type handles transport.
type SessionManager struct {
	tokens   TokenService
	secure   bool
	duration time.Duration
}

func NewSessionManager(tokens TokenService, secure bool, duration time.Duration) *SessionManager {
	return &SessionManager{
		tokens:   tokens,
		secure:   secure,
		duration: duration,
	}
}

// Establish binds a session to the identity and writes the session cookie
func (m *SessionManager) Establish(w http.ResponseWriter, u *user.User) error {
	token, err := m.tokens.CreateToken(u.ID, u.Email, m.duration)
	if err != nil {
		return err
	}

	SetSessionCookie(w, token, m.secure, m.duration)
	return nil
}

// Resolve returns the identity bound to the request's session cookie.
// http.ErrNoCookie when anonymous; ErrExpiredToken/ErrInvalidToken when the
// cookie no longer verifies.
func (m *SessionManager) Resolve(r *http.Request) (uuid.UUID, string, error) {
	token, err := GetSessionTokenFromCookie(r)
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, err := m.tokens.VerifyToken(token)
	if err != nil {
		return uuid.Nil, "", err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}

	return userID, claims.Email, nil
}

// Clear expires the session and remember-me cookies
func (m *SessionManager) Clear(w http.ResponseWriter) {
	ClearAuthCookies(w)
}
