package auth

import (
	"net/http"
	"time"
)

// Cookie names are a contract with the UI; do not rename.
// auth_token holds the signed remember-me token and is never readable by
// scripts. theme is a signed, non-authoritative preference the UI may read.
const (
	SessionCookieName  = "session"
	RememberCookieName = "auth_token"
	ThemeCookieName    = "theme"
)

// SetSessionCookie writes the short-lived session token cookie
func SetSessionCookie(w http.ResponseWriter, token string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetRememberCookie writes the remember-me cookie. Max-Age always equals
// the token TTL so the browser drops the cookie when the grant lapses.
func SetRememberCookie(w http.ResponseWriter, signedToken string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    signedToken,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetThemeCookie writes the signed theme preference. Not HttpOnly: the UI
// reads it. Signing only prevents tampering with the server-rendered value;
// it is not an authentication boundary.
func SetThemeCookie(w http.ResponseWriter, signedValue string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     ThemeCookieName,
		Value:    signedValue,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires the session and remember-me cookies
func ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, RememberCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// GetSessionTokenFromCookie reads the session token from the request
func GetSessionTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetRememberTokenFromCookie reads the remember-me token from the request
func GetRememberTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RememberCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
