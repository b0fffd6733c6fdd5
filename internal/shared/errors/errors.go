// Package errors содержит общие доменные ошибки приложения
// и утилиты для error wrapping.
//
// Эти ошибки используются в service и repository слоях
// и маппятся на HTTP-статусы в api слое.
package errors

import "errors"

var (
	// Входные данные невалидны (пустые поля, неправильный формат и т.п.)
	ErrInvalidInput = errors.New("invalid input")
	// Неверные учётные данные. Не различаем "нет пользователя" и "неверный пароль"
	ErrInvalidCredentials = errors.New("invalid credentials")
	// Получена непредвиденная ошибка
	ErrInternal = errors.New("internal error")
	// Полученные JSON данные с ошибками
	ErrBadJSON = errors.New("bad json")
	// Неавторизован
	ErrUnauthorized = errors.New("unauthorized")
	// Ресурс уже существует (например username уже занят)
	ErrAlreadyExists = errors.New("already exists")
	// Ресурс не найден
	ErrNotFound = errors.New("not found")
	// конфликт версий(к примеру при обновлении в бд)
	ErrConflict = errors.New("conflict")
	// ошибка хранилища (I/O, обрыв соединения, битые данные)
	ErrStorage = errors.New("storage error")
	// тело запроса больше допустимого
	ErrPayloadTooLarge = errors.New("payload too large")
	// ожидаемая ошибка
	ErrExpectedError = errors.New("expected error")
	// неожидаемая ошибка
	ErrUnexpectedError = errors.New("unexpected error")
)

// ошибки работы с моделью и разбора её ответов
var (
	// лимит/квота внешнего API исчерпаны, можно повторить позже
	ErrQuotaExceeded = errors.New("quota exceeded")
	// не удалось вытащить JSON из ответа модели, показываем сырой текст
	ErrParse = errors.New("cannot parse model output")
	// в документе нет извлекаемого текста (скан без текстового слоя)
	ErrExtractionEmpty = errors.New("no extractable text")
	// слишком частые обращения к модели
	ErrTooSoon = errors.New("too many requests")
)
