// Серверная модель пользователя
package models

import "time"

// User — запись таблицы users. Создаётся при регистрации и больше не меняется.
type User struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}
