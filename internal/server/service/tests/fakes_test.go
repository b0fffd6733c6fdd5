package tests

import (
	"context"
	"strings"
	"sync"

	"github.com/IvanChernomyrdin/gophassist/internal/server/document"
	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
)

// fakeGen отвечает заранее заданными строками и запоминает запросы.
type fakeGen struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []genai.Request
}

func (f *fakeGen) next(req genai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeGen) Generate(_ context.Context, req genai.Request) (string, error) {
	return f.next(req)
}

// Stream отдаёт ответ по словам.
func (f *fakeGen) Stream(_ context.Context, req genai.Request, onChunk func(string) error) (string, error) {
	reply, err := f.next(req)
	if err != nil {
		return "", err
	}
	for _, w := range strings.SplitAfter(reply, " ") {
		if err := onChunk(w); err != nil {
			return "", err
		}
	}
	return reply, nil
}

func (f *fakeGen) last() genai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeGen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeExtractor возвращает готовые страницы.
type fakeExtractor struct {
	pages []document.Page
	err   error
}

func (f fakeExtractor) Extract(context.Context, []byte) ([]document.Page, error) {
	return f.pages, f.err
}
