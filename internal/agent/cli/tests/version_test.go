package tests

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/cli"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/config"
)

func runVersion(t *testing.T, app *cli.App, args ...string) string {
	t.Helper()
	cmd := cli.NewVersionCmd(app, "1.2.3", "2026-01-16")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestVersionCmd_Text(t *testing.T) {
	app := &cli.App{ServerURL: "https://assist.local:8080"}

	got := runVersion(t, app)
	want := "version=1.2.3\nbuild_date=2026-01-16\n" +
		"go=" + runtime.Version() + "\n" +
		"platform=" + runtime.GOOS + "/" + runtime.GOARCH + "\n" +
		"server=https://assist.local:8080\n"
	require.Equal(t, want, got)
}

func TestVersionCmd_ShowsLoggedInUser(t *testing.T) {
	app := &cli.App{
		ServerURL: "https://127.0.0.1:8080",
		Creds:     &config.Credentials{Username: "alice", RefreshToken: "r"},
	}
	require.Contains(t, runVersion(t, app), "\nuser=alice\n")

	// имя без токенов — сессии нет
	app.Creds = &config.Credentials{Username: "alice"}
	require.NotContains(t, runVersion(t, app), "user=")
}

func TestVersionCmd_JSON(t *testing.T) {
	app := &cli.App{
		ServerURL: "https://assist.local:8080",
		Creds:     &config.Credentials{Username: "bob", AccessToken: "a"},
	}

	var info cli.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(runVersion(t, app, "--json")), &info))
	require.Equal(t, cli.BuildInfo{
		Version:   "1.2.3",
		BuildDate: "2026-01-16",
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Server:    "https://assist.local:8080",
		Username:  "bob",
	}, info)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	cmd := cli.NewVersionCmd(&cli.App{}, "1.2.3", "2026-01-16")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	require.Error(t, cmd.Execute())
}
