package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/config"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"
)

func TestInit_UnreachableDB(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := config.Init(ctx,
		config.DBConfig{DSN: "postgres://u:p@127.0.0.1:1/gophassist?sslmode=disable&connect_timeout=1"},
		config.MigrationsConfig{Enabled: false},
		logger.NewNop(),
	)
	require.Error(t, err)
}

// Интеграционный тест с настоящей DB: миграции применяются и повторный запуск не ломается
func TestInit_WithDSN(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping integration test")
	}

	ctx := context.Background()
	mig := config.MigrationsConfig{Enabled: true, Path: "file://../../../../migrations/postgres"}

	require.NoError(t, config.Init(ctx, config.DBConfig{DSN: dsn}, mig, logger.NewNop()))
	t.Cleanup(func() { config.GetDB().Close() })

	require.NoError(t, config.Migrate(config.GetDB(), mig.Path))

	var n int
	require.NoError(t, config.GetDB().QueryRow(`SELECT count(*) FROM users`).Scan(&n))
}
