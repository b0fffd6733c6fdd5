// Package config отвечает за:
// - чтение server.yaml
// - подстановку переменных окружения вида ${JWT_SIGNING_KEY}
// - проставление дефолтов
// - валидацию (чтобы сервер не стартовал с дырявыми настройками)
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config — корневая структура всего конфига сервера.
type Config struct {
	Env        string           `yaml:"env"` // dev|stage|prod
	Server     ServerConfig     `yaml:"server"`
	TLS        TLSConfig        `yaml:"tls"`
	DB         DBConfig         `yaml:"db"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Auth       AuthConfig       `yaml:"auth"`
	Password   PasswordConfig   `yaml:"password"`
	Security   SecurityConfig   `yaml:"security"`
	Log        LogConfig        `yaml:"log"`
	GenAI      GenAIConfig      `yaml:"genai"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Chat       ChatConfig       `yaml:"chat"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
}

// ServerConfig — настройки HTTP-сервера.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"` // стрим чата держит соединение, не ставить слишком мало
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"` // время на graceful shutdown
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"` // лимит JSON тела запроса
}

// TLSConfig — настройки HTTPS.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	MinVersion string `yaml:"min_version"` // "1.2"|"1.3" (1.0/1.1 запрещаем т.к. устарели)
}

// DBConfig — настройки хранилища пользователей.
type DBConfig struct {
	Driver          string        `yaml:"driver"` // postgres|mongo
	DSN             string        `yaml:"dsn"`
	MongoDatabase   string        `yaml:"mongo_database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"` // таймаут на запросы к БД
}

// MigrationsConfig — настройки миграций БД (только postgres).
type MigrationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuthConfig — настройки аутентификации/авторизации.
type AuthConfig struct {
	Issuer     string         `yaml:"issuer"`
	Audience   string         `yaml:"audience"`
	AccessTTL  time.Duration  `yaml:"access_ttl"`
	RefreshTTL time.Duration  `yaml:"refresh_ttl"`
	JWT        JWTConfig      `yaml:"jwt"`
	Sessions   SessionsConfig `yaml:"sessions"`
}

// JWTConfig — как подписываем JWT.
type JWTConfig struct {
	Algorithm  string `yaml:"algorithm"`   // сейчас поддерживаем только HS256
	SigningKey string `yaml:"signing_key"` // может содержать ${JWT_SIGNING_KEY}
}

// SessionsConfig — настройки хранения refresh-сессий (на сервере).
type SessionsConfig struct {
	RotateRefresh  bool `yaml:"rotate_refresh"`
	ReuseDetection bool `yaml:"reuse_detection"`
}

// PasswordConfig — настройки хэширования паролей пользователей.
type PasswordConfig struct {
	Hasher       string       `yaml:"hasher"`        // argon2id|bcrypt
	AcceptLegacy bool         `yaml:"accept_legacy"` // принимать старые sha256-хэши без соли
	MinLength    int          `yaml:"min_length"`
	Argon2       Argon2Config `yaml:"argon2"`
	Bcrypt       BcryptConfig `yaml:"bcrypt"`
}

// Argon2Config — параметры argon2id.
type Argon2Config struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
	KeyLen    uint32 `yaml:"key_len"`
	SaltLen   uint32 `yaml:"salt_len"`
}

// BcryptConfig — параметры bcrypt.
type BcryptConfig struct {
	Cost int `yaml:"cost"`
}

// SecurityConfig — ограничения/защита.
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig — разрешённые источники для браузерных клиентов.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig — настройки логирования (zap).
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
	File  string `yaml:"file"`
}

// GenAIConfig — доступ к API генеративной модели.
type GenAIConfig struct {
	APIKey          string        `yaml:"api_key"` // ${GEMINI_API_KEY}
	BaseURL         string        `yaml:"base_url"`
	ModelCandidates []string      `yaml:"model_candidates"` // по порядку предпочтения
	DefaultModel    string        `yaml:"default_model"`    // если ни один кандидат не найден
	Timeout         time.Duration `yaml:"timeout"`
	Retry           RetryConfig   `yaml:"retry"`
}

// RetryConfig — повторы при ошибке квоты.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// PacingConfig — не чаще одного вызова модели на пользователя за интервал.
type PacingConfig struct {
	Store       string        `yaml:"store"`        // memory|redis
	MinInterval time.Duration `yaml:"min_interval"` // 0 — выключено
	Redis       RedisConfig   `yaml:"redis"`
}

// RedisConfig — подключение к redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ChatConfig — чат-сессии.
type ChatConfig struct {
	KnowledgeFile  string        `yaml:"knowledge_file"` // фиксированная база знаний (.txt), может отсутствовать
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	MaxHistory     int           `yaml:"max_history"` // сколько реплик держим в сессии
	MaxPromptBytes int           `yaml:"max_prompt_bytes"`
}

// DocumentsConfig — загрузка документов.
type DocumentsConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// ArtifactsConfig — где храним файлы для скачивания.
type ArtifactsConfig struct {
	Store string   `yaml:"store"` // local|s3|none
	Dir   string   `yaml:"dir"`
	S3    S3Config `yaml:"s3"`
}

// S3Config — S3-совместимое хранилище (AWS, Cloudflare R2, MinIO).
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
}

// Load читает YAML, подставляет переменные окружения вида ${VAR},
// затем парсит в структуру, проставляет дефолты и валидирует.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг: %w", err)
	}

	// Подставляем переменные окружения в текст YAML:
	// api_key: "${GEMINI_API_KEY}" -> api_key: "реальное_значение"
	expanded := ExpandEnvStrict(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("не удалось распарсить yaml: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envRe = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// ExpandEnvStrict заменяет ${VAR} на значение из окружения.
// Если переменная не задана — оставляем ${VAR} как есть,
// а потом Validate() упадёт с понятной ошибкой.
func ExpandEnvStrict(s string) string {
	return envRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := envRe.FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		return m
	})
}

// DefaultModelCandidates — порядок выбора модели, если в конфиге пусто.
var DefaultModelCandidates = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-flash-latest",
	"gemini-1.5-flash",
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-pro",
}

// ApplyDefaults — дефолтные значения, если в yaml поле не задано.
func ApplyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.DB.MongoDatabase == "" {
		cfg.DB.MongoDatabase = "gophassist"
	}
	if cfg.Migrations.Path == "" {
		cfg.Migrations.Path = "file://migrations/postgres"
	}
	if cfg.Auth.JWT.Algorithm == "" {
		cfg.Auth.JWT.Algorithm = "HS256"
	}
	if cfg.Auth.AccessTTL == 0 {
		cfg.Auth.AccessTTL = 15 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Password.Hasher == "" {
		cfg.Password.Hasher = "argon2id"
	}
	if cfg.Password.MinLength == 0 {
		cfg.Password.MinLength = 6
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.GenAI.BaseURL == "" {
		cfg.GenAI.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if len(cfg.GenAI.ModelCandidates) == 0 {
		cfg.GenAI.ModelCandidates = DefaultModelCandidates
	}
	if cfg.GenAI.DefaultModel == "" {
		cfg.GenAI.DefaultModel = "models/gemini-2.5-flash"
	}
	if cfg.GenAI.Timeout == 0 {
		cfg.GenAI.Timeout = 60 * time.Second
	}
	if cfg.GenAI.Retry.MaxAttempts == 0 {
		cfg.GenAI.Retry.MaxAttempts = 3
	}
	if cfg.GenAI.Retry.BaseDelay == 0 {
		cfg.GenAI.Retry.BaseDelay = time.Second
	}
	if cfg.GenAI.Retry.MaxDelay == 0 {
		cfg.GenAI.Retry.MaxDelay = 8 * time.Second
	}
	if cfg.Pacing.Store == "" {
		cfg.Pacing.Store = "memory"
	}
	if cfg.Chat.SessionTTL == 0 {
		cfg.Chat.SessionTTL = 2 * time.Hour
	}
	if cfg.Chat.SweepInterval == 0 {
		cfg.Chat.SweepInterval = 5 * time.Minute
	}
	if cfg.Chat.MaxHistory == 0 {
		cfg.Chat.MaxHistory = 100
	}
	if cfg.Chat.MaxPromptBytes == 0 {
		cfg.Chat.MaxPromptBytes = 32 << 10
	}
	if cfg.Documents.MaxBytes == 0 {
		cfg.Documents.MaxBytes = 20 << 20
	}
	if cfg.Artifacts.Store == "" {
		cfg.Artifacts.Store = "local"
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "runtime/artifacts"
	}
	if cfg.Artifacts.S3.Region == "" {
		cfg.Artifacts.S3.Region = "auto"
	}
}

// Validate проверяет, что конфиг заполнен корректно и безопасно.
// Если что-то не так — возвращаем ошибку и сервер НЕ стартует.
func (c *Config) Validate() error {
	// Базовая проверка сервера
	if c.Server.Host == "" {
		return errors.New("server.host обязателен")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port некорректен: %d", c.Server.Port)
	}

	// TLS/HTTPS
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return errors.New("tls.cert_file и tls.key_file обязательны при tls.enabled=true")
		}
		if c.TLS.MinVersion == "" {
			c.TLS.MinVersion = "1.2"
		}
		// TLS 1.0/1.1 считаются небезопасными — запрещаем
		if c.TLS.MinVersion == "1.0" || c.TLS.MinVersion == "1.1" {
			return fmt.Errorf("tls.min_version=%s небезопасен; используй 1.2 или 1.3", c.TLS.MinVersion)
		}
	}

	// База данных
	switch c.DB.Driver {
	case "postgres", "mongo":
	default:
		return fmt.Errorf("db.driver должен быть postgres|mongo (сейчас %q)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db.dsn обязателен")
	}

	// JWT
	alg := strings.ToUpper(strings.TrimSpace(c.Auth.JWT.Algorithm))
	if alg != "HS256" {
		return fmt.Errorf("auth.jwt.algorithm должен быть HS256 (сейчас %q)", c.Auth.JWT.Algorithm)
	}

	key := strings.TrimSpace(c.Auth.JWT.SigningKey)
	if key == "" {
		return errors.New("auth.jwt.signing_key обязателен (через ${JWT_SIGNING_KEY} или прямо строкой)")
	}
	// Если ${JWT_SIGNING_KEY} не подставился — значит переменная окружения не задана
	if hasPlaceholder(key) {
		return fmt.Errorf("auth.jwt.signing_key содержит неподставленную переменную: %q (нужно задать JWT_SIGNING_KEY)", key)
	}
	// Для HS256 ключ должен быть длинным и случайным
	if len(key) < 32 {
		return fmt.Errorf("auth.jwt.signing_key слишком короткий (%d символов); нужно >= 32", len(key))
	}

	// Хэширование паролей
	switch strings.ToLower(c.Password.Hasher) {
	case "argon2id":
		if c.Password.Argon2.Time == 0 || c.Password.Argon2.MemoryKiB == 0 || c.Password.Argon2.Threads == 0 {
			return errors.New("password.argon2 должен быть настроен для argon2id")
		}
		if c.Password.Argon2.KeyLen == 0 || c.Password.Argon2.SaltLen == 0 {
			return errors.New("password.argon2.key_len и salt_len должны быть > 0")
		}
	case "bcrypt":
		if c.Password.Bcrypt.Cost == 0 {
			return errors.New("password.bcrypt.cost должен быть задан для bcrypt")
		}
	default:
		return fmt.Errorf("password.hasher должен быть argon2id|bcrypt (сейчас %q)", c.Password.Hasher)
	}

	// Ключ модели
	apiKey := strings.TrimSpace(c.GenAI.APIKey)
	if apiKey == "" || hasPlaceholder(apiKey) {
		return errors.New("genai.api_key обязателен (задай GEMINI_API_KEY)")
	}
	// ключи Google AI Studio всегда начинаются с AIza
	if !strings.HasPrefix(apiKey, "AIza") {
		return errors.New("genai.api_key не похож на ключ Google AI Studio (должен начинаться с AIza)")
	}
	if c.GenAI.Retry.MaxAttempts < 1 {
		return errors.New("genai.retry.max_attempts должен быть >= 1")
	}

	// Пейсинг
	switch c.Pacing.Store {
	case "memory":
	case "redis":
		if c.Pacing.Redis.Addr == "" {
			return errors.New("pacing.redis.addr обязателен при pacing.store=redis")
		}
	default:
		return fmt.Errorf("pacing.store должен быть memory|redis (сейчас %q)", c.Pacing.Store)
	}
	if c.Pacing.MinInterval < 0 {
		return errors.New("pacing.min_interval не может быть отрицательным")
	}

	// Чат: тикер очистки паникует на неположительном интервале
	if c.Chat.SweepInterval <= 0 {
		return fmt.Errorf("chat.sweep_interval должен быть > 0 (сейчас %s)", c.Chat.SweepInterval)
	}
	if c.Chat.SessionTTL <= 0 {
		return fmt.Errorf("chat.session_ttl должен быть > 0 (сейчас %s)", c.Chat.SessionTTL)
	}

	// Артефакты
	switch c.Artifacts.Store {
	case "local", "none":
	case "s3":
		if c.Artifacts.S3.Bucket == "" || c.Artifacts.S3.Endpoint == "" {
			return errors.New("artifacts.s3.bucket и endpoint обязательны при artifacts.store=s3")
		}
	default:
		return fmt.Errorf("artifacts.store должен быть local|s3|none (сейчас %q)", c.Artifacts.Store)
	}

	return nil
}

// ApplyEnvOverrides — опциональная штука: даёт возможность переопределять
// некоторые настройки через переменные окружения без ${...} в yaml.
// Например SERVER_PORT=9090 переопределит server.port.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func hasPlaceholder(s string) bool {
	return strings.Contains(s, "${") && strings.Contains(s, "}")
}
