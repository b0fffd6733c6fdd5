package api

import (
	"io"
	"net/url"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// OptimizeSEO переписывает текст под SEO.
func (c *Client) OptimizeSEO(accessToken string, req models.SEORequest) (models.SEOResponse, error) {
	var resp models.SEOResponse
	err := c.PostJSON("/seo/optimize", req, &resp, accessToken)
	return resp, err
}

// DraftEmail составляет черновик письма.
func (c *Client) DraftEmail(accessToken string, req models.EmailRequest) (models.EmailDraft, error) {
	var resp models.EmailDraft
	err := c.PostJSON("/email/draft", req, &resp, accessToken)
	return resp, err
}

// ExtractDocument загружает PDF и получает его текст.
func (c *Client) ExtractDocument(accessToken, filename string, data []byte) (models.DocumentResponse, error) {
	var resp models.DocumentResponse
	err := c.Upload("/documents/extract", "file", filename, data, &resp, accessToken)
	return resp, err
}

// DownloadArtifact пишет артефакт name в w.
func (c *Client) DownloadArtifact(accessToken, name string, w io.Writer) error {
	_, err := c.Download("/artifacts/"+url.PathEscape(name), w, accessToken)
	return err
}
