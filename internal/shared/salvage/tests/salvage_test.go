package tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "fenced block with language tag",
			raw:  "```json\n{\"a\":1}\n```",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "prefix and suffix around object",
			raw:  "prefix {\"x\": [1,2,3]} suffix",
			want: map[string]any{"x": []any{float64(1), float64(2), float64(3)}},
		},
		{
			name: "plain object",
			raw:  `{"title":"Hello"}`,
			want: map[string]any{"title": "Hello"},
		},
		{
			name: "nested objects keep outermost span",
			raw:  "Here you go:\n{\"faqs\":[{\"q\":\"a\"}],\"n\":{\"m\":true}}\nThanks!",
			want: map[string]any{
				"faqs": []any{map[string]any{"q": "a"}},
				"n":    map[string]any{"m": true},
			},
		},
		{
			name: "text before fence is ignored",
			raw:  "Sure! {not this}\n```\n{\"ok\":true}\n```\ntrailing",
			want: map[string]any{"ok": true},
		},
		{
			name: "unterminated fence uses the rest",
			raw:  "```json\n{\"ok\":false}",
			want: map[string]any{"ok": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := salvage.ExtractJSON(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no braces", raw: "no braces here"},
		{name: "closing before opening", raw: "} nope {"},
		{name: "invalid json inside braces", raw: "{title: 'x'}"},
		{name: "stray brace after object", raw: `{"a":"{"} trailing }`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := salvage.ExtractJSON(tt.raw)
			require.Nil(t, got)
			require.Error(t, err)
			require.True(t, errors.Is(err, serr.ErrParse))

			var pe *salvage.ParseError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tt.raw, pe.Raw)
		})
	}
}

func TestDecode_TypedStruct(t *testing.T) {
	type draft struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}

	got, err := salvage.Decode[draft]("Draft:\n```json\n{\"subject\":\"Hi\",\"body\":\"Hello {name}\"}\n```")
	require.NoError(t, err)
	require.Equal(t, draft{Subject: "Hi", Body: "Hello {name}"}, got)
}

func TestDecode_TypeMismatchIsParseError(t *testing.T) {
	type strict struct {
		Count int `json:"count"`
	}

	_, err := salvage.Decode[strict](`{"count":"many"}`)
	require.ErrorIs(t, err, serr.ErrParse)
}

func TestCandidate(t *testing.T) {
	c, ok := salvage.Candidate("x {\"a\":{\"b\":2}} y")
	require.True(t, ok)
	require.Equal(t, `{"a":{"b":2}}`, c)

	_, ok = salvage.Candidate("nothing")
	require.False(t, ok)
}
