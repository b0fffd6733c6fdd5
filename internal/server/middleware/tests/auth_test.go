package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/crypto"
	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
)

// Вспомогательная функция для JWT
func makeToken(t *testing.T, key, sub, iss, aud string, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    iss,
		Audience:  []string{aud},
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, v *middleware.JWTVerifier, authHeader string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	if next == nil {
		next = func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	v.AuthMiddleware()(next).ServeHTTP(rr, req)
	return rr
}

// Успех
func TestAuthMiddleware_OK(t *testing.T) {
	key := "secret"
	v := middleware.NewJWTVerifier(key, "issuer", "aud")

	token, err := crypto.NewAccessToken(42, "alice", crypto.JWTConfig{
		Issuer:     "issuer",
		Audience:   "aud",
		SigningKey: key,
		AccessTTL:  time.Minute,
	})
	require.NoError(t, err)

	called := false
	rr := serve(t, v, "Bearer "+token, func(w http.ResponseWriter, r *http.Request) {
		called = true

		uid, ok := middleware.UserIDFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, int64(42), uid)

		name, ok := middleware.UsernameFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "alice", name)

		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

// Нет токена
func TestAuthMiddleware_MissingToken(t *testing.T) {
	v := middleware.NewJWTVerifier("key", "", "")

	rr := serve(t, v, "", nil)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"error":"missing bearer token"}`, rr.Body.String())
}

// Токен истёк
func TestAuthMiddleware_Expired(t *testing.T) {
	key := "secret"
	v := middleware.NewJWTVerifier(key, "", "")

	token := makeToken(t, key, "7", "", "", time.Now().Add(-time.Minute))

	rr := serve(t, v, "Bearer "+token, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "token expired")
}

// subject должен быть числовым id
func TestAuthMiddleware_BadSubject(t *testing.T) {
	key := "secret"
	v := middleware.NewJWTVerifier(key, "", "")

	for _, sub := range []string{"user", "", "-1"} {
		token := makeToken(t, key, sub, "", "", time.Now().Add(time.Minute))
		rr := serve(t, v, "Bearer "+token, nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code, sub)
	}
}

func TestAuthMiddleware_WrongIssuerAudienceKey(t *testing.T) {
	v := middleware.NewJWTVerifier("secret", "issuer", "aud")
	exp := time.Now().Add(time.Minute)

	rr := serve(t, v, "Bearer "+makeToken(t, "secret", "1", "other", "aud", exp), nil)
	require.Contains(t, rr.Body.String(), "invalid token issuer")

	rr = serve(t, v, "Bearer "+makeToken(t, "secret", "1", "issuer", "other", exp), nil)
	require.Contains(t, rr.Body.String(), "invalid token audience")

	rr = serve(t, v, "Bearer "+makeToken(t, "another", "1", "issuer", "aud", exp), nil)
	require.Contains(t, rr.Body.String(), "invalid token")
}

// Проверка форматов принимаемого токена
func TestExtractBearer(t *testing.T) {
	tests := []struct {
		hdr  string
		want string
	}{
		{"Bearer token", "token"},
		{"bearer token", "token"},
		{"Bearer    token", "token"},
		{"Token token", ""},
		{"", ""},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, middleware.ExtractBearer(tt.hdr), tt.hdr)
	}
}
