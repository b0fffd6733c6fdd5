package models

import (
	"time"

	"github.com/google/uuid"
)

// Session — refresh-сессия пользователя. Сам токен не хранится, только его sha256.
type Session struct {
	ID          uuid.UUID  `bson:"_id"`
	UserID      int64      `bson:"user_id"`
	RefreshHash []byte     `bson:"refresh_hash"`
	ExpiresAt   time.Time  `bson:"expires_at"`
	RevokedAt   *time.Time `bson:"revoked_at,omitempty"`
	ReplacedBy  *uuid.UUID `bson:"replaced_by,omitempty"`
}

// Active — сессия не отозвана и не истекла на момент now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
