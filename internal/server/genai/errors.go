package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gemini "google.golang.org/genai"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// APIError — ответ Gemini не 2xx, кроме ошибок квоты.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("genai: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("genai: %d: %s", e.Status, e.Message)
}

// QuotaError — исчерпана квота. RetryAfter берётся из google.rpc.RetryInfo, если он есть.
type QuotaError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return "genai: quota exceeded: " + e.Message
}

func (e *QuotaError) Unwrap() error { return serr.ErrQuotaExceeded }

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

// convertError приводит ошибку SDK к *QuotaError или *APIError.
// Сетевые ошибки и ошибки контекста оборачиваются как есть.
func convertError(err error) error {
	var apiErr gemini.APIError
	if !errors.As(err, &apiErr) {
		var p *gemini.APIError
		if !errors.As(err, &p) || p == nil {
			return fmt.Errorf("genai: %w", err)
		}
		apiErr = *p
	}

	// на не-JSON ответ SDK кладёт в Status строку вида "502 Bad Gateway"
	code := apiErr.Status
	if strings.ContainsRune(code, ' ') {
		code = ""
	}
	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		msg = apiErr.Status
	}
	if msg == "" {
		msg = http.StatusText(apiErr.Code)
	}

	if apiErr.Code == http.StatusTooManyRequests || code == "RESOURCE_EXHAUSTED" {
		return &QuotaError{Message: msg, RetryAfter: retryDelay(apiErr.Details)}
	}
	return &APIError{Status: apiErr.Code, Code: code, Message: msg}
}

// retryDelay ищет в деталях ошибки RetryInfo.retryDelay ("17s", "0.5s").
func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		if t, _ := d["@type"].(string); t != retryInfoType {
			continue
		}
		v, _ := d["retryDelay"].(string)
		if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}
