package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSetRememberCookie_Attributes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetRememberCookie(rec, "signed-token", true, 30*24*time.Hour)

	c := findCookie(t, rec, RememberCookieName)
	require.Equal(t, "signed-token", c.Value)
	require.True(t, c.HttpOnly, "remember cookie must not be script-readable")
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, int((30 * 24 * time.Hour).Seconds()), c.MaxAge, "cookie lifetime must match token TTL")
	require.Equal(t, "/", c.Path)
}

func TestSetSessionCookie_Attributes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "session-token", false, 30*time.Minute)

	c := findCookie(t, rec, SessionCookieName)
	require.Equal(t, "session-token", c.Value)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestSetThemeCookie_ScriptReadable(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetThemeCookie(rec, "signed-theme", true, time.Hour)

	c := findCookie(t, rec, ThemeCookieName)
	require.False(t, c.HttpOnly, "theme cookie is meant to be read by the UI")
	require.True(t, c.Secure)
}

func TestClearAuthCookies(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ClearAuthCookies(rec)

	session := findCookie(t, rec, SessionCookieName)
	remember := findCookie(t, rec, RememberCookieName)

	require.Empty(t, session.Value)
	require.Negative(t, session.MaxAge)
	require.Empty(t, remember.Value)
	require.Negative(t, remember.MaxAge)
}

func TestGetTokensFromCookie(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess"})
	r.AddCookie(&http.Cookie{Name: RememberCookieName, Value: "rem"})

	sess, err := GetSessionTokenFromCookie(r)
	require.NoError(t, err)
	require.Equal(t, "sess", sess)

	rem, err := GetRememberTokenFromCookie(r)
	require.NoError(t, err)
	require.Equal(t, "rem", rem)

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = GetSessionTokenFromCookie(bare)
	require.ErrorIs(t, err, http.ErrNoCookie)
}
