package openai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text passes through", "hello world", "hello world"},
		{"surrounding whitespace trimmed", "  \n\thello\n ", "hello"},
		{"double quotes trimmed", `"hello"`, "hello"},
		{"single quotes trimmed", "'hello'", "hello"},
		{"backticks trimmed", "`hello`", "hello"},
		{"nested quoting trimmed until stable", "\" '`hello`' \"", "hello"},
		{"interior quotes preserved", `say "hi" back`, `say "hi" back`},
		{"em dash normalized", "build — ship — learn", "build - ship - learn"},
		{"empty input", "", ""},
		{"quotes only", `"'"`, ""},
		{"whitespace only", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw, 280))
		})
	}
}

func TestSanitize_Truncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := Sanitize(long, 280)
	assert.Equal(t, 280, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 277), strings.TrimSuffix(got, "..."))

	// Multi-byte text is truncated by runes, not bytes.
	wide := strings.Repeat("ü", 300)
	got = Sanitize(wide, 280)
	assert.Equal(t, 280, len([]rune(got)))

	exact := strings.Repeat("a", 280)
	assert.Equal(t, exact, Sanitize(exact, 280))
}

func TestExtractFinal(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			"both markers",
			"thinking...\n<final_tweet>the answer</final_tweet>\ntrailing",
			"the answer",
			true,
		},
		{
			"missing end marker takes the rest",
			"<final_tweet>the answer runs on",
			"the answer runs on",
			true,
		},
		{
			"missing start marker fails",
			"no markers here",
			"",
			false,
		},
		{
			"empty payload is still extracted",
			"<final_tweet></final_tweet>",
			"",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFinal(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator("", "o3-mini", 5000, 3, 280)
	assert.Error(t, err)

	g, err := NewGenerator("sk-test", "o3-mini", 5000, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, g.candidates)
	assert.Equal(t, 280, g.maxLength)
}
