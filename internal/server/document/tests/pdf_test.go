package tests

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/document"
	"github.com/IvanChernomyrdin/gophassist/internal/server/document/pdftest"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

func TestIsPDF(t *testing.T) {
	require.True(t, document.IsPDF([]byte("%PDF-1.7\n...")))
	// мусор перед заголовком встречается у некоторых генераторов
	require.True(t, document.IsPDF(append(bytes.Repeat([]byte{' '}, 100), []byte("%PDF-1.4")...)))

	require.False(t, document.IsPDF(nil))
	require.False(t, document.IsPDF([]byte("PK\x03\x04 zip archive")))
	require.False(t, document.IsPDF(append(bytes.Repeat([]byte{'x'}, 2000), []byte("%PDF-1.4")...)))
}

func TestPDF_Extract_NotPDF(t *testing.T) {
	_, err := document.PDF{}.Extract(context.Background(), []byte("hello world"))
	require.ErrorIs(t, err, serr.ErrInvalidInput)
}

func TestPDF_Extract_Broken(t *testing.T) {
	_, err := document.PDF{}.Extract(context.Background(), []byte("%PDF-1.4\nthis is not a real pdf body"))
	require.ErrorIs(t, err, serr.ErrInvalidInput)
}

// вторая страница без текста даёт пустую строку, а не ошибку
func TestPDF_Extract_Pages(t *testing.T) {
	pages, err := document.PDF{}.Extract(context.Background(), pdftest.Build("Hello World", ""))
	require.NoError(t, err)
	require.Equal(t, []document.Page{{Number: 1, Text: "Hello World"}, {Number: 2, Text: ""}}, pages)
}

func TestPDF_Extract_Escaped(t *testing.T) {
	pages, err := document.PDF{}.Extract(context.Background(), pdftest.Build(`price (net) \ 10`))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, `price (net) \ 10`, pages[0].Text)
}

func TestPDF_Extract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := document.PDF{}.Extract(ctx, pdftest.Build("a", "b"))
	require.ErrorIs(t, err, context.Canceled)
}
