// HTTP-хендлеры инструментов: SEO, черновики писем, PDF и артефакты
package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/IvanChernomyrdin/gophassist/internal/server/artifacts"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// запас на заголовки multipart поверх лимита документа
const multipartOverhead = 64 << 10

// OptimizeSEO переписывает текст под SEO.
//
// Если ответ модели не удалось разобрать, возвращается 422 и сырой текст в поле raw.
//
// @Summary      SEO optimize
// @Tags         tools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.SEORequest true "Text and options"
// @Success      200 {object} models.SEOResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      422 {object} models.ErrorResponse "Unparseable model output, raw attached"
// @Failure      429 {object} models.ErrorResponse
// @Failure      503 {object} models.ErrorResponse
// @Router       /seo/optimize [post]
func (h *Handler) OptimizeSEO(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.SEORequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "seo", err)
		return
	}

	resp, err := h.Svc.SEO.Optimize(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "seo", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DraftEmail пишет черновик письма.
//
// @Summary      Draft e-mail
// @Tags         tools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.EmailRequest true "Purpose and points"
// @Success      200 {object} models.EmailDraft
// @Failure      400 {object} models.ErrorResponse
// @Failure      422 {object} models.ErrorResponse
// @Failure      429 {object} models.ErrorResponse
// @Failure      503 {object} models.ErrorResponse
// @Router       /email/draft [post]
func (h *Handler) DraftEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.EmailRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "email", err)
		return
	}

	draft, err := h.Svc.Email.Draft(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "email", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// ExtractDocument извлекает текст из PDF.
//
// Файл принимается полем file в multipart/form-data или телом application/pdf.
//
// @Summary      Extract PDF text
// @Tags         tools
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "PDF document"
// @Success      200 {object} models.DocumentResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      413 {object} models.ErrorResponse
// @Router       /documents/extract [post]
func (h *Handler) ExtractDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	data, err := h.readDocument(w, r)
	if err != nil {
		h.fail(w, r, "extract", err)
		return
	}

	resp, err := h.Svc.Documents.Extract(r.Context(), id, data)
	if err != nil {
		h.fail(w, r, "extract", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// readDocument читает файл из multipart-поля file или из тела.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := h.Svc.Documents.MaxBytes()
	if limit <= 0 {
		limit = 20 << 20
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(ContentType))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		return data, bodyError(err)
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		if e := bodyError(err); errors.Is(e, serr.ErrPayloadTooLarge) {
			return nil, e
		}
		return nil, fmt.Errorf("%w: bad multipart form", serr.ErrInvalidInput)
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: field file is required", serr.ErrInvalidInput)
	}
	defer f.Close()

	if hdr.Size > limit {
		return nil, serr.ErrPayloadTooLarge
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", serr.ErrInvalidInput, err)
	}
	return data, nil
}

func bodyError(err error) error {
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return serr.ErrPayloadTooLarge
	}
	return fmt.Errorf("%w: read body: %v", serr.ErrInvalidInput, err)
}

// DownloadArtifact отдаёт сохранённый файл текущего пользователя.
//
// @Summary      Download artifact
// @Tags         tools
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        name path string true "Artifact name"
// @Success      200 {file} file
// @Failure      400 {object} models.ErrorResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /artifacts/{name} [get]
func (h *Handler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	key, err := artifacts.Key(strconv.FormatInt(id, 10), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, "download", err)
		return
	}

	rc, a, err := h.Svc.Artifacts.Open(r.Context(), key)
	if err != nil {
		h.fail(w, r, "download", err)
		return
	}
	defer rc.Close()

	w.Header().Set(ContentType, a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Sugar().Warnw("artifact copy interrupted", "key", key, "error", err)
	}
}
