// Package crypto содержит криптографические примитивы,
// используемые сервером GophAssist.
//
// В частности, пакет отвечает за:
//   - хэширование и проверку паролей (argon2id, bcrypt, legacy sha256);
//   - генерацию и подпись JWT access-токенов;
//   - генерацию refresh-токенов и их хэшей для хранения.
package crypto

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig описывает параметры генерации JWT access-токена.
type JWTConfig struct {
	// Issuer — значение поля iss (кто выдал токен).
	Issuer string
	// Audience — значение поля aud (для кого предназначен токен).
	Audience string
	// SigningKey — секретный ключ для подписи токена (HS256).
	// Должен быть достаточно длинным и случайным.
	SigningKey string
	// AccessTTL — срок жизни access-токена.
	AccessTTL time.Duration
}

// Claims — claims access-токена: стандартные поля плюс username,
// чтобы не ходить в БД ради /me и логов.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAccessToken создаёт и подписывает JWT access-токен для пользователя.
//
// sub — id пользователя в десятичном виде. Используется алгоритм HS256.
func NewAccessToken(userID int64, username string, cfg JWTConfig) (string, error) {
	now := time.Now()

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  []string{cfg.Audience},
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(cfg.SigningKey))
}
