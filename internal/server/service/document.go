package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	"github.com/IvanChernomyrdin/gophassist/internal/server/document"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/utils"
)

// подсказка, когда в документе нет текстового слоя
const ocrHint = "could not extract text; scanned (image) PDFs need OCR"

// DocumentService превращает PDF в текст.
type DocumentService struct {
	extractor document.Extractor
	artifacts artifacts.Store
	maxBytes  int64
	clock     clockwork.Clock
}

func NewDocumentService(extractor document.Extractor, store artifacts.Store, maxBytes int64, clock clockwork.Clock) *DocumentService {
	if extractor == nil {
		extractor = document.PDF{}
	}
	if store == nil {
		store = artifacts.Discard{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DocumentService{extractor: extractor, artifacts: store, maxBytes: maxBytes, clock: clock}
}

// MaxBytes — лимит размера загружаемого документа.
func (s *DocumentService) MaxBytes() int64 { return s.maxBytes }

// JoinPages склеивает страницы в формате "\n--- Page N ---\n<text>" и обрезает пробелы.
func JoinPages(pages []document.Page) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s", p.Number, p.Text)
	}
	return strings.TrimSpace(b.String())
}

// Extract извлекает текст и, если он не пустой, сохраняет его артефактом.
//
// Документ без текста — это не ошибка: Empty=true и подсказка про OCR.
//
// Ошибки:
//   - ErrInvalidInput — пустой, не PDF или битый файл
//   - ErrPayloadTooLarge — файл больше documents.max_bytes
//   - ErrStorage — не удалось сохранить артефакт
func (s *DocumentService) Extract(ctx context.Context, userID int64, data []byte) (models.DocumentResponse, error) {
	if len(data) == 0 {
		return models.DocumentResponse{}, fmt.Errorf("%w: empty document", serr.ErrInvalidInput)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return models.DocumentResponse{}, serr.ErrPayloadTooLarge
	}

	pages, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return models.DocumentResponse{}, err
	}

	resp := models.DocumentResponse{Pages: len(pages)}

	hasText := false
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		resp.Empty = true
		resp.Warning = serr.ErrExtractionEmpty.Error() + ": " + ocrHint
		return resp, nil
	}

	resp.Text = JoinPages(pages)

	name := utils.StampedName("pdf_text", "txt", s.clock.Now())
	a, err := s.artifacts.Put(ctx, ownerKey(userID), name, artifacts.ContentTypeFor(name), []byte(resp.Text))
	if err != nil {
		return models.DocumentResponse{}, err
	}
	if a.Stored() {
		am := toArtifactModel(a)
		resp.Artifact = &am
	}
	return resp, nil
}
