package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/cli"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/config"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/memory"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

func TestNewLoginCmd_Success_SavesTokensAndPrintsMessage(t *testing.T) {
	// HTTPS тестовый сервер
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Username != "alice" {
			t.Fatalf("expected username alice, got %q", req.Username)
		}
		if req.Password != "StrongPass123" {
			t.Fatalf("expected password StrongPass123, got %q", req.Password)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
		})
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	// временный путь под креды
	tmpDir := t.TempDir()
	credsPath := filepath.Join(tmpDir, "creds.json")

	app := &cli.App{
		ServerURL: srv.URL,
		CredsPath: credsPath,
		Creds:     &config.Credentials{},
	}

	cmd := cli.NewLoginCmd(app)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	cmd.SetArgs([]string{
		"--username", "alice",
		"--password", "StrongPass123",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if got := out.String(); !strings.Contains(got, "login ok (tokens saved)") {
		t.Fatalf("unexpected output: %q", got)
	}

	// проверим, что токены реально сохранились в файл
	loaded, err := config.Load(credsPath)
	if err != nil {
		t.Fatalf("load creds: %v", err)
	}
	if loaded.AccessToken != "access-1" {
		t.Fatalf("expected AccessToken=access-1, got %q", loaded.AccessToken)
	}
	if loaded.RefreshToken != "refresh-1" {
		t.Fatalf("expected RefreshToken=refresh-1, got %q", loaded.RefreshToken)
	}
	if loaded.Username != "alice" {
		t.Fatalf("expected Username=alice, got %q", loaded.Username)
	}
}

func TestNewLoginCmd_MissingRequiredFlags_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	credsPath := filepath.Join(tmpDir, "creds.json")

	app := &cli.App{
		ServerURL: "https://127.0.0.1:8080",
		CredsPath: credsPath,
		Creds:     &config.Credentials{},
	}

	cmd := cli.NewLoginCmd(app)
	cmd.SetArgs([]string{
		"--password", "StrongPass123",
		// --username пропущен
	})

	err := cmd.Execute()
	if err == nil {
		t.Fatalf("%s, got nil", serr.ErrExpectedError.Error())
	}

	// Cobra обычно пишет "required flag(s) \"username\" not set"
	if !strings.Contains(err.Error(), "required") {
		t.Fatalf("%s: %v", serr.ErrUnexpectedError.Error(), err)
	}
}

func TestNewLoginCmd_ServerReturnsError_DoesNotWriteCredsFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	tmpDir := t.TempDir()
	credsPath := filepath.Join(tmpDir, "creds.json")

	app := &cli.App{
		ServerURL: srv.URL,
		CredsPath: credsPath,
		Creds:     &config.Credentials{},
	}

	cmd := cli.NewLoginCmd(app)
	cmd.SetArgs([]string{
		"--username", "alice",
		"--password", "wrong",
	})

	err := cmd.Execute()
	if err == nil {
		t.Fatalf("%s, got nil", serr.ErrExpectedError.Error())
	}
	if !strings.Contains(err.Error(), serr.ErrInvalidCredentials.Error()) {
		t.Fatalf("%s: %v", serr.ErrUnexpectedError.Error(), err)
	}

	// файл не обязан существовать (и лучше, чтобы не появлялся)
	if _, statErr := os.Stat(credsPath); statErr == nil {
		// Если всё же создался — это плохо: токены не должны сохраняться при ошибке логина
		t.Fatalf("creds file should not be created on login error")
	}
}

func TestNewLoginCmd_OtherUser_ClearsLocalHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-bob",
			"refresh_token": "refresh-bob",
		})
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	tmpDir := t.TempDir()
	hist := memory.NewHistory(0)
	hist.Append("hi", "hello alice")

	app := &cli.App{
		ServerURL:   srv.URL,
		CredsPath:   filepath.Join(tmpDir, "creds.json"),
		Creds:       &config.Credentials{Username: "alice", AccessToken: "a", RefreshToken: "r"},
		HistoryPath: filepath.Join(tmpDir, "history.json"),
		History:     hist,
	}

	cmd := cli.NewLoginCmd(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--username", "bob", "--password", "pw"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if hist.Len() != 0 {
		t.Fatalf("expected empty history after switching user, got %d", hist.Len())
	}
	if app.Creds.Username != "bob" {
		t.Fatalf("expected Username=bob, got %q", app.Creds.Username)
	}
}
