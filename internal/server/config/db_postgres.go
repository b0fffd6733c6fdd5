// Package config содержит инициализацию подключения к базе данных сервера
// и доступ к глобальному экземпляру *sql.DB.
//
// Пакет выполняет:
//   - открытие соединения с PostgreSQL (через драйвер pgx);
//   - проверку доступности базы (Ping);
//   - запуск миграций (golang-migrate) при старте сервера.
//
// Примечание: пакет использует глобальную переменную DB. Инициализация должна
// выполняться один раз при запуске сервера.
package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"
)

// DB — глобальный экземпляр подключения к базе данных.
//
// Инициализируется функцией Init и используется другими пакетами через GetDB.
var DB *sql.DB

// Init открывает подключение к базе данных, настраивает пул, проверяет
// доступность и (если включено) применяет миграции.
//
// Если миграции уже применены, ошибка migrate.ErrNoChange не считается ошибкой.
func Init(ctx context.Context, dbCfg DBConfig, migCfg MigrationsConfig, log *logger.HTTPLogger) error {
	sugar := log.Sugar()

	var err error
	DB, err = sql.Open("pgx", dbCfg.DSN)
	if err != nil {
		sugar.Errorf("error to connect db: %v", err)
		return err
	}

	if dbCfg.MaxOpenConns > 0 {
		DB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 {
		DB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	DB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	DB.SetConnMaxIdleTime(dbCfg.ConnMaxIdleTime)

	if err = DB.PingContext(ctx); err != nil {
		sugar.Errorf("error check db connection: %v", err)
		return err
	}

	if !migCfg.Enabled {
		sugar.Info("migrations disabled")
		return nil
	}

	if err := Migrate(DB, migCfg.Path); err != nil {
		sugar.Errorf("error applying migrations: %v", err)
		return err
	}

	sugar.Info("migrations applied successfully")
	return nil
}

// Migrate применяет миграции из source (например file://migrations/postgres).
func Migrate(db *sql.DB, source string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	// создаём миграции с выбранным драйвером
	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// GetDB возвращает текущий глобальный экземпляр *sql.DB.
//
// Возвращаемое значение может быть nil, если Init ещё не вызывался
// или завершился ошибкой.
func GetDB() *sql.DB {
	return DB
}
