// Package document извлекает текст из загруженных документов.
//
// Извлечение best effort: страница, текст которой прочитать не удалось,
// даёт пустую строку. Скан без текстового слоя вернёт одни пустые страницы.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// Page — текст одной страницы, Number начинается с 1.
type Page struct {
	Number int
	Text   string
}

// Extractor достаёт текст постранично.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]Page, error)
}

// PDF — Extractor для PDF.
type PDF struct{}

var pdfMagic = []byte("%PDF-")

// IsPDF проверяет сигнатуру файла.
func IsPDF(data []byte) bool {
	// сигнатура обязана быть в первом килобайте
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

// Extract разбирает PDF. Не-PDF и битый файл — ErrInvalidInput.
func (PDF) Extract(ctx context.Context, data []byte) (pages []Page, err error) {
	if !IsPDF(data) {
		return nil, fmt.Errorf("%w: not a pdf document", serr.ErrInvalidInput)
	}

	// парсер паникует на некоторых битых файлах
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: broken pdf: %v", serr.ErrInvalidInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", serr.ErrInvalidInput, err)
	}

	total := r.NumPage()
	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i, Text: pageText(r.Page(i))})
	}
	return pages, nil
}

// pageText — текст страницы или "", если его не получить.
func pageText(p pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	if p.V.IsNull() {
		return ""
	}
	t, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}
