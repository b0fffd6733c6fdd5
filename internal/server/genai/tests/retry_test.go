package tests

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/genai"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// fakeGen — Generator с заранее заданной последовательностью ошибок.
type fakeGen struct {
	calls atomic.Int32
	errs  []error
	text  string
}

func (f *fakeGen) next() error {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return f.errs[n]
	}
	return nil
}

func (f *fakeGen) Generate(context.Context, genai.Request) (string, error) {
	if err := f.next(); err != nil {
		return "", err
	}
	return f.text, nil
}

func (f *fakeGen) Stream(_ context.Context, _ genai.Request, onChunk func(string) error) (string, error) {
	if err := f.next(); err != nil {
		return "", err
	}
	for _, ch := range strings.Split(f.text, " ") {
		if err := onChunk(ch); err != nil {
			return "", err
		}
	}
	return f.text, nil
}

func fastPolicy(attempts int) genai.RetryPolicy {
	return genai.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrying_RecoversFromQuota(t *testing.T) {
	quota := &genai.QuotaError{Message: "busy"}
	g := &fakeGen{errs: []error{quota, quota}, text: "ok"}

	out, err := genai.NewRetrying(g, fastPolicy(3)).Generate(context.Background(), genai.Prompt("m", "hi"))
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, int32(3), g.calls.Load())
}

// после исчерпания попыток наружу выходит ошибка квоты
func TestRetrying_Exhausted(t *testing.T) {
	quota := &genai.QuotaError{Message: "busy"}
	g := &fakeGen{errs: []error{quota, quota, quota, quota}}

	_, err := genai.NewRetrying(g, fastPolicy(3)).Generate(context.Background(), genai.Prompt("m", "hi"))
	require.ErrorIs(t, err, serr.ErrQuotaExceeded)
	require.Equal(t, int32(3), g.calls.Load())
}

// прочие ошибки не повторяются
func TestRetrying_NonQuotaNotRetried(t *testing.T) {
	g := &fakeGen{errs: []error{&genai.APIError{Status: 500, Message: "boom"}}}

	_, err := genai.NewRetrying(g, fastPolicy(5)).Generate(context.Background(), genai.Prompt("m", "hi"))
	var apiErr *genai.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, int32(1), g.calls.Load())
}

func TestRetrying_Stream(t *testing.T) {
	g := &fakeGen{errs: []error{&genai.QuotaError{}}, text: "a b"}

	var got []string
	out, err := genai.NewRetrying(g, fastPolicy(2)).Stream(context.Background(), genai.Prompt("m", "hi"), func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "a b", out)
	require.Equal(t, []string{"a", "b"}, got)
}
