package strings

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "short string unchanged", input: "hello", maxLen: 10, expected: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, expected: "hello"},
		{name: "long string truncated", input: "hello world this is a long string", maxLen: 15, expected: "hello world ..."},
		{name: "newlines replaced", input: "remote answered 500:\nInternal error", maxLen: 60, expected: "remote answered 500: Internal error"},
		{name: "carriage returns handled", input: "hello\r\nworld", maxLen: 20, expected: "hello world"},
		{name: "tabs collapsed", input: "hello\t\tworld", maxLen: 20, expected: "hello world"},
		{name: "whitespace only becomes empty", input: "   \n\t  ", maxLen: 10, expected: ""},
		{name: "maxLen clamped", input: "hello", maxLen: 0, expected: "h..."},
		{name: "negative maxLen clamped", input: "hello", maxLen: -5, expected: "h..."},
		{name: "short string with small maxLen unchanged", input: "hi", maxLen: 3, expected: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	input := "éééééé" // 6 runes, 12 bytes
	result := Truncate(input, 5)

	if result != "éé..." {
		t.Errorf("Expected two runes and an ellipsis, got %q", result)
	}
	if !utf8.ValidString(result) {
		t.Errorf("Result %q is not valid UTF-8", result)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  a\n\nb  c "); got != "a b c" {
		t.Errorf("SingleLine() = %q", got)
	}
}
