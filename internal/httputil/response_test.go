package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondJSON(rec, map[string]string{"status": "ok"}, http.StatusCreated)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRespondJSON_UnencodableValue(t *testing.T) {
	t.Parallel()

	// Channels cannot be marshalled; the caller's status code must not
	// reach the wire ahead of a body that will never come
	rec := httptest.NewRecorder()
	RespondJSON(rec, map[string]any{"bad": make(chan int)}, http.StatusOK)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestRespondErrorWithCode(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondErrorWithCode(rec, "invalid credentials", CodeInvalidCredentials, http.StatusUnauthorized)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid credentials","code":"INVALID_CREDENTIALS"}`, rec.Body.String())
}
