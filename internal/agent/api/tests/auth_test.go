package tests

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

func TestClient_Register_Success(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		require.Equal(t, "StrongPass123", req.Password)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.RegisterResponse{UserID: 1, Username: "alice", CreatedAt: created})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	c := api.NewClient(srv.URL)

	resp, err := c.Register("alice", "StrongPass123")
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.UserID)
	require.Equal(t, "alice", resp.Username)
	require.True(t, resp.CreatedAt.Equal(created))
}

func TestClient_Login_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		require.Equal(t, "StrongPass123", req.Password)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	c := api.NewClient(srv.URL)

	resp, err := c.Login("alice", "StrongPass123")
	require.NoError(t, err)
	require.Equal(t, "access-1", resp.AccessToken)
	require.Equal(t, "refresh-1", resp.RefreshToken)
}

func TestClient_Refresh_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "refresh-1", req.RefreshToken)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
		})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	c := api.NewClient(srv.URL)

	resp, err := c.Refresh("refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", resp.AccessToken)
	require.Equal(t, "refresh-2", resp.RefreshToken)
}

func TestClient_Exists_EscapesUsername(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/exists", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "al ice&x", r.URL.Query().Get("username"))
		json.NewEncoder(w).Encode(models.ExistsResponse{Exists: true})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	ok, err := api.NewClient(srv.URL).Exists("al ice&x")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClient_Logout_NoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	require.NoError(t, api.NewClient(srv.URL).Logout("access-1"))
}

func TestClient_Me_Success_UsesBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.MeResponse{UserID: 7, Username: "alice"})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	c := api.NewClient(srv.URL)

	resp, err := c.Me("access-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), resp.UserID)
	require.Equal(t, "alice", resp.Username)
}

func TestClient_Non2xx_ReturnsBodyAsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, "invalid credentials")
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	c := api.NewClient(srv.URL)

	_, err := c.Login("alice", "wrong")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid credentials"))
	require.True(t, api.IsStatus(err, http.StatusUnauthorized))
}
