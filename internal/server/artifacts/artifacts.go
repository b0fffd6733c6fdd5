// Package artifacts хранит результаты, которые пользователь может скачать:
// извлечённый из PDF текст, SEO-пакет, тело статьи.
//
// Ключ артефакта — "<owner>/<name>", owner — id пользователя.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// Artifact — метаданные сохранённого файла.
type Artifact struct {
	Name        string
	Key         string
	ContentType string
	Size        int64
	URL         string
	CreatedAt   time.Time
}

// Stored — артефакт действительно сохранён (не Discard).
func (a Artifact) Stored() bool { return a.Key != "" }

// Store — хранилище артефактов.
type Store interface {
	Put(ctx context.Context, owner, name, contentType string, data []byte) (Artifact, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Artifact, error)
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidName — имя файла без путей и служебных символов.
func ValidName(name string) bool {
	return nameRe.MatchString(name) && !strings.Contains(name, "..")
}

// Key собирает ключ артефакта. Имя и владелец проверяются.
func Key(owner, name string) (string, error) {
	if !ValidName(owner) || !ValidName(name) {
		return "", fmt.Errorf("%w: bad artifact name", serr.ErrInvalidInput)
	}
	return owner + "/" + name, nil
}

// splitKey — обратная операция к Key.
func splitKey(key string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(key, "/")
	if !ok || !ValidName(owner) || !ValidName(name) {
		return "", "", fmt.Errorf("%w: bad artifact key", serr.ErrInvalidInput)
	}
	return owner, name, nil
}

// ContentTypeFor — тип по расширению, по умолчанию application/octet-stream.
func ContentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Discard ничего не сохраняет (artifacts.store=none).
type Discard struct{}

func (Discard) Put(_ context.Context, _, name, contentType string, data []byte) (Artifact, error) {
	return Artifact{Name: name, ContentType: contentType, Size: int64(len(data))}, nil
}

func (Discard) Open(context.Context, string) (io.ReadCloser, Artifact, error) {
	return nil, Artifact{}, serr.ErrNotFound
}
