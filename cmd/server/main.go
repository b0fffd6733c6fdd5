// @title           GophAssist API
// @version         1.0
// @description     Personal AI assistant backend (GophAssist).
// @description     Provides user authentication, chat with a generative model, SEO rewriting, e-mail drafting and PDF text extraction.
// @termsOfService  https://example.com/terms

// @contact.name   Ivan Chernomyrdin
// @contact.url    https://github.com/IvanChernomyrdin
// @contact.email  ivan@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
//
// Package main содержит точку входа серверного приложения GophAssist.
//
// Пакет отвечает за инициализацию и жизненный цикл HTTP(S)-сервера, а именно:
//   - загрузку переменных окружения из файла .env (если он присутствует);
//   - загрузку конфигурации сервера из файла ./configs/server.yaml;
//   - обязательную проверку включённого TLS (сервер работает только по HTTPS);
//   - подключение к хранилищу пользователей (PostgreSQL или MongoDB);
//   - выбор модели, pacer'а и хранилища артефактов;
//   - создание репозиториев, сервисов, middleware и HTTP-обработчиков;
//   - периодическую очистку протухших чат-сессий;
//   - корректное (graceful) завершение работы сервера с таймаутом.
//
// Пакет не содержит бизнес-логики и не предназначен для unit-тестирования.
// HTTP API сервера реализовано в пакете internal/server/api и документируется с помощью OpenAPI (Swagger).
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/IvanChernomyrdin/gophassist/internal/server/api"
	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/config"
	"github.com/IvanChernomyrdin/gophassist/internal/server/document"
	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	"github.com/IvanChernomyrdin/gophassist/internal/server/middleware"
	h "github.com/IvanChernomyrdin/gophassist/internal/server/net/http"
	"github.com/IvanChernomyrdin/gophassist/internal/server/pacing"
	"github.com/IvanChernomyrdin/gophassist/internal/server/repository"
	"github.com/IvanChernomyrdin/gophassist/internal/server/service"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/logger"

	_ "github.com/IvanChernomyrdin/gophassist/swagger/docs"
)

// префикс, по которому API отдаёт артефакты
const artifactsURLPrefix = "/artifacts"

func main() {
	boot := logger.NewHTTPLogger().Sugar()

	if err := godotenv.Load(); err != nil {
		boot.Warnf("no .env file loaded, error: %v", err)
	}

	cfg, err := config.Load("./configs/server.yaml")
	if err != nil {
		boot.Fatal(err)
	}
	// хочу только https
	if !cfg.TLS.Enabled {
		boot.Fatal("tls must be enabled")
	}

	httpLogger := logger.New(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	defer httpLogger.Sync()
	sugar := httpLogger.Sugar()

	// создаём контекст и errgroup
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	// хранилище пользователей
	repos, closeRepos, err := openRepositories(ctx, cfg, httpLogger)
	if err != nil {
		sugar.Fatal(err)
	}
	defer closeRepos()

	// модель
	client, err := genai.NewClient(ctx, genai.Options{
		APIKey:  cfg.GenAI.APIKey,
		BaseURL: cfg.GenAI.BaseURL,
		Timeout: cfg.GenAI.Timeout,
	})
	if err != nil {
		sugar.Fatal(err)
	}
	model, available := client.SelectModel(ctx, cfg.GenAI.ModelCandidates, cfg.GenAI.DefaultModel)
	sugar.Infow("model selected", "model", model, "available", len(available))

	gen := genai.NewRetrying(client, genai.RetryPolicy{
		MaxAttempts: cfg.GenAI.Retry.MaxAttempts,
		BaseDelay:   cfg.GenAI.Retry.BaseDelay,
		MaxDelay:    cfg.GenAI.Retry.MaxDelay,
	})

	pacer, memPacer, closePacer := newPacer(cfg.Pacing)
	defer closePacer()

	store, err := newArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		sugar.Fatal(err)
	}

	knowledge, err := service.LoadKnowledge(cfg.Chat.KnowledgeFile)
	if err != nil {
		sugar.Warnf("knowledge file not loaded: %v", err)
	}

	// создаём сервис
	svc := service.NewServices(repos, service.Deps{
		Generator: gen,
		Lister:    client,
		Pacer:     pacer,
		Artifacts: store,
		Extractor: document.PDF{},
		Model:     model,
		Knowledge: knowledge,
	}, cfg)

	// создаём jwt
	verifier := middleware.NewJWTVerifier(
		cfg.Auth.JWT.SigningKey,
		cfg.Auth.Issuer,
		cfg.Auth.Audience,
	)
	// создаём хандлер
	handler := api.NewHandler(svc, httpLogger, verifier)
	handler.MaxBodyBytes = cfg.Server.MaxBodyBytes
	if cfg.Security.CORS.Enabled {
		handler.Origins = cfg.Security.CORS.AllowedOrigins
	}
	// создаём роутер
	router := h.NewRouter(handler, cfg.Security.CORS)
	//создаём сервер
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		TLSConfig:         &tls.Config{MinVersion: tlsVersion(cfg.TLS.MinVersion)},
	}

	g, ctx := errgroup.WithContext(ctx)

	// запускаем сервер
	g.Go(func() error {
		sugar.Infof("server started on %s", addr)

		if err := server.ListenAndServeTLS(
			cfg.TLS.CertFile,
			cfg.TLS.KeyFile,
		); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// чистим протухшие чат-сессии и отметки pacer'а
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Chat.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n := svc.Chat.Sweep()
				if memPacer != nil {
					memPacer.Sweep()
				}
				if n > 0 {
					sugar.Debugw("chat sessions expired", "count", n)
				}
			}
		}
	})

	// graceful shutdown с таймаутом из конфига
	g.Go(func() error {
		<-ctx.Done()

		sugar.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	// ожидание и единная обработка ошибок
	if err := g.Wait(); err != nil {
		sugar.Fatalf("server stopped with error: %v", err)
	}
	sugar.Info("server gracefully stopped")
}

// openRepositories подключает postgres или mongo в зависимости от db.driver.
func openRepositories(ctx context.Context, cfg *config.Config, log *logger.HTTPLogger) (service.Repositories, func(), error) {
	switch cfg.DB.Driver {
	case "mongo":
		db, err := config.ConnectMongo(ctx, cfg.DB)
		if err != nil {
			return service.Repositories{}, nil, fmt.Errorf("connect mongo: %w", err)
		}
		users := repository.NewMongoUsersRepository(db)
		sessions := repository.NewMongoSessionsRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return service.Repositories{}, nil, err
		}
		if err := sessions.EnsureIndexes(ctx); err != nil {
			return service.Repositories{}, nil, err
		}
		closeFn := func() { _ = db.Client().Disconnect(context.Background()) }
		return service.Repositories{Users: users, Sessions: sessions}, closeFn, nil

	default:
		// подключаем базу данных
		if err := config.Init(ctx, cfg.DB, cfg.Migrations, log); err != nil {
			return service.Repositories{}, nil, err
		}
		db := config.GetDB()
		closeFn := func() {
			if db != nil {
				db.Close()
			}
		}
		return service.Repositories{
			Users:    repository.NewUsersRepository(db),
			Sessions: repository.NewSessionsRepository(db),
		}, closeFn, nil
	}
}

// newPacer возвращает pacer и, если он in-memory, ссылку на него для очистки.
func newPacer(cfg config.PacingConfig) (pacing.Pacer, *pacing.Memory, func()) {
	if cfg.MinInterval <= 0 {
		return pacing.Noop{}, nil, func() {}
	}
	if cfg.Store == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return pacing.NewRedis(rdb, cfg.MinInterval), nil, func() { _ = rdb.Close() }
	}
	m := pacing.NewMemory(cfg.MinInterval, nil)
	return m, m, func() {}
}

func newArtifactStore(ctx context.Context, cfg config.ArtifactsConfig) (artifacts.Store, error) {
	switch cfg.Store {
	case "none":
		return artifacts.Discard{}, nil
	case "s3":
		client, err := artifacts.NewS3Client(ctx, artifacts.S3Options{
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return artifacts.NewS3(client, cfg.S3.Bucket, cfg.S3.PublicURL, artifactsURLPrefix), nil
	default:
		return artifacts.NewLocal(cfg.Dir, artifactsURLPrefix)
	}
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
