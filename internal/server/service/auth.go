package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/IvanChernomyrdin/gophassist/internal/server/config"
	"github.com/IvanChernomyrdin/gophassist/internal/server/crypto"
	"github.com/IvanChernomyrdin/gophassist/internal/server/models"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// максимальная длина username в символах
const maxUsernameLen = 64

// AuthService реализует хранилище учётных данных и управление сессиями.
//
// Ответственность:
//   - проверка существования, регистрация и проверка пароля пользователя
//   - аутентификация (логин)
//   - выпуск access / refresh токенов
//   - обновление access токенов по refresh
//   - rotation refresh токенов
//   - reuse detection (защита от повторного использования refresh)
type AuthService struct {
	users    UsersRepo
	sessions SessionsRepo

	hasher       crypto.Hasher
	acceptLegacy bool
	minPassword  int
	jwt          crypto.JWTConfig

	refreshTTL     time.Duration
	rotateRefresh  bool
	reuseDetection bool

	onLogout []func(ctx context.Context, userID int64)
	now      func() time.Time
}

// TokenPair представляет пару access / refresh токенов.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// NewAuthService создаёт AuthService с зависимостями и настройками из конфига.
func NewAuthService(users UsersRepo, sessions SessionsRepo, cfg *config.Config) *AuthService {
	params := crypto.Argon2Params{
		Time:      cfg.Password.Argon2.Time,
		MemoryKiB: cfg.Password.Argon2.MemoryKiB,
		Threads:   cfg.Password.Argon2.Threads,
		KeyLen:    cfg.Password.Argon2.KeyLen,
		SaltLen:   cfg.Password.Argon2.SaltLen,
	}
	// имя хэшера уже проверено в config.Validate
	hasher, err := crypto.NewHasher(cfg.Password.Hasher, params, cfg.Password.Bcrypt.Cost)
	if err != nil {
		hasher = crypto.Argon2Hasher{Params: params}
	}

	minPassword := cfg.Password.MinLength
	if minPassword <= 0 {
		minPassword = 6
	}

	return &AuthService{
		users:    users,
		sessions: sessions,

		hasher:       hasher,
		acceptLegacy: cfg.Password.AcceptLegacy,
		minPassword:  minPassword,
		jwt: crypto.JWTConfig{
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			SigningKey: cfg.Auth.JWT.SigningKey,
			AccessTTL:  cfg.Auth.AccessTTL,
		},

		refreshTTL:     cfg.Auth.RefreshTTL,
		rotateRefresh:  cfg.Auth.Sessions.RotateRefresh,
		reuseDetection: cfg.Auth.Sessions.ReuseDetection,

		now: time.Now,
	}
}

// OnLogout регистрирует обработчик, который вызывается после успешного Logout.
func (s *AuthService) OnLogout(fn func(ctx context.Context, userID int64)) {
	s.onLogout = append(s.onLogout, fn)
}

// normalizeUsername обрезает пробелы по краям. Регистр сохраняется как есть.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func validUsername(username string) bool {
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return false
	}
	return strings.IndexFunc(username, unicode.IsSpace) < 0
}

// Exists — true, если пользователь с таким username (точное совпадение) есть.
// Пустое имя никогда не зарегистрировано: (false, nil) без запроса в хранилище.
func (s *AuthService) Exists(ctx context.Context, username string) (bool, error) {
	username = normalizeUsername(username)
	if username == "" {
		return false, nil
	}
	return s.users.Exists(ctx, username)
}

// Create регистрирует нового пользователя.
//
// Валидация:
//   - username не пустой, без пробелов внутри, не длиннее 64 символов
//   - пароль не короче password.min_length символов
//
// Уникальность username обеспечивает unique constraint хранилища при вставке,
// предварительный Exists не делается.
//
// Ошибки:
//   - ErrInvalidInput при некорректных данных
//   - ErrAlreadyExists если username занят (независимо от пароля)
//   - ErrStorage при сбое хранилища
func (s *AuthService) Create(ctx context.Context, username, password string) (models.User, error) {
	username = normalizeUsername(username)
	if !validUsername(username) || utf8.RuneCountInString(password) < s.minPassword {
		return models.User{}, serr.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, crypto.ErrEmptyPassword) || errors.Is(err, crypto.ErrPasswordTooLong) {
			return models.User{}, serr.ErrInvalidInput
		}
		return models.User{}, fmt.Errorf("%w: hash password: %v", serr.ErrInternal, err)
	}
	return s.users.Create(ctx, username, hash)
}

// Verify проверяет пароль пользователя.
//
// true — пользователь найден и пароль совпал. Отсутствие пользователя
// и неверный пароль дают (false, nil). Ошибка только при сбое хранилища
// или битом хэше в записи.
func (s *AuthService) Verify(ctx context.Context, username, password string) (bool, error) {
	_, ok, err := s.authenticate(ctx, username, password)
	return ok, err
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (models.User, bool, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return models.User{}, false, nil
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}

	ok, err := crypto.VerifyPassword(password, u.PasswordHash, s.acceptLegacy)
	if err != nil {
		// хэш в записи не разбирается — это порча данных
		return models.User{}, false, fmt.Errorf("%w: user %d: %v", serr.ErrStorage, u.ID, err)
	}
	if !ok {
		return models.User{}, false, nil
	}
	return u, true, nil
}

// Login аутентифицирует пользователя и выдаёт пару токенов.
//
// Поведение:
//   - не раскрывает факт существования username
//   - при успехе создаёт refresh-сессию
//
// Ошибки:
//   - ErrInvalidInput
//   - ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	if normalizeUsername(username) == "" || password == "" {
		return TokenPair{}, serr.ErrInvalidInput
	}

	u, ok, err := s.authenticate(ctx, username, password)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, serr.ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// issue создаёт access токен и новую refresh-сессию.
func (s *AuthService) issue(ctx context.Context, u models.User) (TokenPair, error) {
	access, err := crypto.NewAccessToken(u.ID, u.Username, s.jwt)
	if err != nil {
		return TokenPair{}, serr.ErrInternal
	}
	refresh, err := crypto.NewRefreshToken()
	if err != nil {
		return TokenPair{}, serr.ErrInternal
	}

	_, err = s.sessions.Create(ctx, models.Session{
		UserID:      u.ID,
		RefreshHash: crypto.HashRefreshToken(refresh),
		ExpiresAt:   s.now().Add(s.refreshTTL),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh обновляет access токен по refresh токену.
//
// Поддерживает:
//   - rotation refresh токенов
//   - reuse detection (отзыв всех сессий при атаке)
//
// Ошибки:
//   - ErrInvalidInput
//   - ErrUnauthorized
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, serr.ErrInvalidInput
	}

	sess, err := s.sessions.GetByRefreshHash(ctx, crypto.HashRefreshToken(refreshToken))
	if err != nil {
		return TokenPair{}, err
	}

	now := s.now()
	if sess.ExpiresAt.Before(now) {
		return TokenPair{}, serr.ErrUnauthorized
	}

	// если токен уже отозван — значит кто-то пытается переиспользовать
	if sess.RevokedAt != nil {
		if s.reuseDetection {
			if err := s.sessions.RevokeAllForUser(ctx, sess.UserID); err != nil {
				return TokenPair{}, err
			}
		}
		return TokenPair{}, serr.ErrUnauthorized
	}

	// username нужен в claims
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return TokenPair{}, serr.ErrUnauthorized
		}
		return TokenPair{}, err
	}

	access, err := crypto.NewAccessToken(u.ID, u.Username, s.jwt)
	if err != nil {
		return TokenPair{}, serr.ErrInternal
	}

	// если rotate_refresh выключен — возвращаем только новый access, refresh тот же
	if !s.rotateRefresh {
		return TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
	}

	// rotation: выдаём новый refresh, старый отзываем
	newRefresh, err := crypto.NewRefreshToken()
	if err != nil {
		return TokenPair{}, serr.ErrInternal
	}

	newID, err := s.sessions.Create(ctx, models.Session{
		UserID:      u.ID,
		RefreshHash: crypto.HashRefreshToken(newRefresh),
		ExpiresAt:   now.Add(s.refreshTTL),
	})
	if err != nil {
		return TokenPair{}, err
	}

	// пометить старый как revoked и связать с новым
	if err := s.sessions.RevokeAndReplace(ctx, sess.ID, newID); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout отзывает все refresh-сессии пользователя и вызывает обработчики OnLogout.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	for _, fn := range s.onLogout {
		fn(ctx, userID)
	}
	return nil
}

// Me возвращает пользователя по id из access токена.
func (s *AuthService) Me(ctx context.Context, userID int64) (models.User, error) {
	return s.users.GetByID(ctx, userID)
}
