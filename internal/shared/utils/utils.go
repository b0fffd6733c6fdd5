// Утилитарные функции общего назначения
package utils

import (
	"fmt"
	"time"
)

func Ptr[T any](v T) *T {
	return &v
}

// Stamp возвращает метку времени для имён файлов: 20060102_150405.
func Stamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// StampedName собирает имя вида <prefix>_<stamp>.<ext>.
func StampedName(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, Stamp(t), ext)
}
