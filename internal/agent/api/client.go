// Package api содержит HTTP-клиент для взаимодействия с сервером GophAssist.
//
// Клиент инкапсулирует базовый URL сервера и настроенный http.Client,
// предоставляя методы для отправки JSON-запросов (POST/GET/PUT/DELETE)
// с авторизацией через Bearer токен, загрузки файлов, скачивания артефактов
// и подключения к чату по websocket.
//
// Особенности:
//   - baseURL нормализуется (обрезаются завершающие "/").
//   - По умолчанию добавляется заголовок Accept: application/json.
//   - При ответах 204 No Content тело не читается и это считается успехом.
//   - Пустое тело ответа (EOF при декодировании) не считается ошибкой.
//   - Ошибочный ответ (не 2xx) превращается в *Error: статус, текст ошибки,
//     сырой ответ модели (если сервер его вернул) и Retry-After.
//
// ВНИМАНИЕ: NewClient включает InsecureSkipVerify=true (TLS сертификат не проверяется).
// Это допустимо только для разработки и локального окружения. Для production следует
// включать проверку сертификата и/или использовать доверенный CA/сертификаты.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// Client реализует HTTP-клиент для общения с сервером GophAssist.
type Client struct {
	baseURL string
	http    *http.Client
	ws      *websocket.Dialer
}

// Error — ошибка, которую вернул сервер.
type Error struct {
	Status int
	// Message — текст из поля error (или тело ответа, если оно не JSON).
	Message string
	// Raw — сырой ответ модели, когда сервер не смог его разобрать.
	Raw string
	// RetryAfter — через сколько секунд имеет смысл повторить, 0 — не указано.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsStatus проверяет, что err — ответ сервера с указанным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// NewClient создаёт новый HTTP-клиент для общения с сервером.
//
// Таймаут http.Client 2 минуты: ответ модели может идти долго.
// Websocket-чат таймаутом не ограничен.
//
// ВНИМАНИЕ: InsecureSkipVerify=true отключает проверку сертификата и делает TLS
// уязвимым для MITM. Использовать только для локальной разработки/тестов.
func NewClient(baseURL string) *Client {
	tlsCfg := &tls.Config{InsecureSkipVerify: true} // только для dev

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		ws: &websocket.Dialer{
			TLSClientConfig:  tlsCfg,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// readAPIError читает тело ошибочного ответа.
//
// Сервер отвечает JSON вида {"error": "...", "raw": "...", "retry_after": N}.
// Если тело не JSON — в Message попадает текст тела или res.Status.
func readAPIError(res *http.Response) error {
	raw, _ := io.ReadAll(res.Body)
	e := &Error{Status: res.StatusCode}

	var body models.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		e.Message = body.Error
		e.Raw = body.Raw
		e.RetryAfter = body.RetryAfter
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = res.Status
	}
	if e.RetryAfter == 0 {
		if v, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
			e.RetryAfter = v
		}
	}
	return e
}

// decodeJSONOrOK декодирует JSON из r в resp.
//
// resp == nil — тело не читается. Пустое тело (io.EOF) не считается ошибкой.
func decodeJSONOrOK(r io.Reader, resp any) error {
	if resp == nil {
		return nil
	}
	err := json.NewDecoder(r).Decode(resp)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// do отправляет запрос и возвращает ответ с 2xx статусом.
// Вызывающий обязан закрыть тело.
func (c *Client) do(method, path string, body io.Reader, contentType, authToken string) (*http.Response, error) {
	r, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "application/json")
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if authToken != "" {
		r.Header.Set("Authorization", "Bearer "+authToken)
	}

	res, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		return nil, readAPIError(res)
	}
	return res, nil
}

// send — общий путь для JSON-методов.
func (c *Client) send(method, path string, req, resp any, authToken string) error {
	var (
		body        io.Reader
		contentType string
	)
	if req != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(req); err != nil {
			return err
		}
		body = &buf
		contentType = "application/json"
	}

	res, err := c.do(method, path, body, contentType, authToken)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// 204/пустое тело — ок
	if res.StatusCode == http.StatusNoContent {
		return nil
	}
	return decodeJSONOrOK(res.Body, resp)
}

// PostJSON выполняет POST-запрос, сериализуя req в JSON.
//
// req == nil — тело не отправляется и Content-Type не ставится.
// resp == nil — тело ответа не декодируется.
// authToken непустой — добавляется Authorization: Bearer <token>.
func (c *Client) PostJSON(path string, req any, resp any, authToken string) error {
	return c.send(http.MethodPost, path, req, resp, authToken)
}

// GetJSON выполняет GET-запрос и (опционально) декодирует JSON-ответ.
func (c *Client) GetJSON(path string, resp any, authToken string) error {
	return c.send(http.MethodGet, path, nil, resp, authToken)
}

// PutJSON выполняет PUT-запрос, сериализуя req в JSON.
func (c *Client) PutJSON(path string, req any, resp any, authToken string) error {
	return c.send(http.MethodPut, path, req, resp, authToken)
}

// DeleteJSON выполняет DELETE-запрос и (опционально) декодирует JSON-ответ.
func (c *Client) DeleteJSON(path string, resp any, authToken string) error {
	return c.send(http.MethodDelete, path, nil, resp, authToken)
}

// PutText отправляет text/plain тело (например базу знаний чата).
func (c *Client) PutText(path, text string, resp any, authToken string) error {
	res, err := c.do(http.MethodPut, path, strings.NewReader(text), "text/plain; charset=utf-8", authToken)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return decodeJSONOrOK(res.Body, resp)
}

// Upload отправляет файл multipart-формой в поле field.
func (c *Client) Upload(path, field, filename string, data []byte, resp any, authToken string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	res, err := c.do(http.MethodPost, path, &buf, mw.FormDataContentType(), authToken)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return decodeJSONOrOK(res.Body, resp)
}

// Download копирует тело ответа в w и возвращает имя файла из
// Content-Disposition (пустое, если сервер его не прислал).
func (c *Client) Download(path string, w io.Writer, authToken string) (string, error) {
	res, err := c.do(http.MethodGet, path, nil, "", authToken)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if _, err := io.Copy(w, res.Body); err != nil {
		return "", err
	}

	var name string
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return name, nil
}

// Dial открывает websocket по path (схема https → wss).
// Ответ сервера при неудачном рукопожатии превращается в *Error.
func (c *Client) Dial(ctx context.Context, path, authToken string) (*websocket.Conn, error) {
	u := c.baseURL + path
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}

	conn, res, err := c.ws.DialContext(ctx, u, header)
	if err != nil {
		if res != nil {
			defer res.Body.Close()
			return nil, readAPIError(res)
		}
		return nil, err
	}
	return conn, nil
}
