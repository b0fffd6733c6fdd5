package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/cli"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/config"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

func registerServer(t *testing.T, wantPassword string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected Content-Type application/json, got %q", ct)
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
		if req.Password != wantPassword {
			t.Fatalf("expected password %q, got %q", wantPassword, req.Password)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"user_id": 1, "username": "alice"})
	})

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRegisterCmd_Success_PrintsMessage(t *testing.T) {
	srv := registerServer(t, "StrongPass123")

	app := &cli.App{
		ServerURL: srv.URL,
		// для register эти поля не используются, но App должен быть валидным
		Creds: &config.Credentials{},
	}

	cmd := cli.NewRegisterCmd(app)

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

	if got := out.String(); got != "registration successful (user \"alice\", id 1)\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestNewRegisterCmd_PromptAsksTwice(t *testing.T) {
	orig := cli.ReadPassword
	t.Cleanup(func() { cli.ReadPassword = orig })

	var prompts []string
	cli.ReadPassword = func(_ *cobra.Command, prompt string, _ bool) (string, error) {
		prompts = append(prompts, prompt)
		return "secret1", nil
	}

	srv := registerServer(t, "secret1")

	cmd := cli.NewRegisterCmd(&cli.App{ServerURL: srv.URL, Creds: &config.Credentials{}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--username", "alice"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %v", prompts)
	}
}

func TestNewRegisterCmd_PasswordMismatch_NoRequest(t *testing.T) {
	orig := cli.ReadPassword
	t.Cleanup(func() { cli.ReadPassword = orig })

	answers := []string{"secret1", "secret2"}
	cli.ReadPassword = func(_ *cobra.Command, _ string, _ bool) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	called := false
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cmd := cli.NewRegisterCmd(&cli.App{ServerURL: srv.URL, Creds: &config.Credentials{}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--username", "alice"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "passwords do not match") {
		t.Fatalf("%s: %v", serr.ErrUnexpectedError.Error(), err)
	}
	if called {
		t.Fatalf("server must not be called on mismatch")
	}
}

func TestNewRegisterCmd_PasswordFromStdin(t *testing.T) {
	srv := registerServer(t, "pass with spaces ")

	cmd := cli.NewRegisterCmd(&cli.App{ServerURL: srv.URL, Creds: &config.Credentials{}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("pass with spaces \n"))
	cmd.SetArgs([]string{"--username", "alice", "--password-stdin"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestNewRegisterCmd_MissingRequiredFlags_ReturnsError(t *testing.T) {
	app := &cli.App{ServerURL: "https://127.0.0.1:8080", Creds: &config.Credentials{}}

	cmd := cli.NewRegisterCmd(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	// не передаём --username
	cmd.SetArgs([]string{"--password", "StrongPass123"})

	err := cmd.Execute()
	if err == nil {
		t.Fatalf("%s, got nil", serr.ErrExpectedError.Error())
	}

	// Cobra обычно пишет "required flag(s) \"username\" not set"
	if !strings.Contains(err.Error(), "required") {
		t.Fatalf("%s: %v", serr.ErrUnexpectedError.Error(), err)
	}
}

func TestNewRegisterCmd_ServerReturnsError_ReturnsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"already exists"}`))
	})

	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	app := &cli.App{
		ServerURL: srv.URL,
		Creds:     &config.Credentials{},
	}

	cmd := cli.NewRegisterCmd(app)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	cmd.SetArgs([]string{
		"--username", "alice",
		"--password", "StrongPass123",
	})

	err := cmd.Execute()
	if err == nil {
		t.Fatalf("%s, got nil", serr.ErrExpectedError.Error())
	}
	if !strings.Contains(err.Error(), serr.ErrAlreadyExists.Error()) {
		t.Fatalf("%s: %v", serr.ErrUnexpectedError.Error(), err)
	}
}
