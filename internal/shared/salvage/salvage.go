// Package salvage вытаскивает JSON-объект из свободного текста, который вернула модель.
//
// Алгоритм эвристический:
//  1. если в тексте есть ``` — берём содержимое первого fenced-блока;
//  2. ищем первую '{' и последнюю '}';
//  3. если обе найдены и '}' стоит после '{' — парсим подстроку (включительно).
//
// Предполагается, что в ответе максимум один JSON-объект верхнего уровня.
// Фигурная скобка внутри строкового значения до настоящей закрывающей
// скобки ломает извлечение; вызывающий код должен показать сырой текст.
package salvage

import (
	"encoding/json"
	"fmt"
	"strings"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

const fence = "```"

// ParseError возвращается, когда из ответа не удалось извлечь объект.
// Raw — исходный текст без изменений, его показываем пользователю.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", serr.ErrParse, e.Reason)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, serr.ErrParse).
func (e *ParseError) Unwrap() error {
	return serr.ErrParse
}

// ExtractJSON возвращает объект из текста модели либо *ParseError.
func ExtractJSON(raw string) (map[string]any, error) {
	return Decode[map[string]any](raw)
}

// Decode работает как ExtractJSON, но раскладывает объект в T.
func Decode[T any](raw string) (T, error) {
	var out T

	candidate, ok := Candidate(raw)
	if !ok {
		return out, &ParseError{Raw: raw, Reason: "no json object found"}
	}

	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		var zero T
		return zero, &ParseError{Raw: raw, Reason: err.Error()}
	}
	return out, nil
}

// Candidate возвращает подстроку от первой '{' до последней '}'
// (после снятия fenced-блока) и false, если такой нет.
func Candidate(raw string) (string, bool) {
	text := stripFence(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// stripFence возвращает содержимое первого ```-блока.
// Незакрытый блок берётся до конца текста.
func stripFence(s string) string {
	parts := strings.Split(s, fence)
	if len(parts) < 2 {
		return s
	}
	return parts[1]
}
