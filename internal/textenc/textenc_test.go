package textenc

import (
	"strings"
	"testing"
)

func TestCharset(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=ISO-8859-1", "ISO-8859-1"},
		{"application/json; charset=utf-8", "utf-8"},
		{"text/plain", ""},
		{"", ""},
		{"not a valid; content;; type=", ""},
	}
	for _, tt := range tests {
		if got := Charset(tt.contentType); got != tt.want {
			t.Errorf("Charset(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestDecode_DeclaredCharset(t *testing.T) {
	// "café" in Latin-1: the é is the single byte 0xE9.
	body := []byte{'c', 'a', 'f', 0xE9}
	if got := Decode(body, "ISO-8859-1"); got != "café" {
		t.Errorf("Decode latin-1 = %q, want %q", got, "café")
	}
}

func TestDecode_UnknownCharsetFallsBack(t *testing.T) {
	got := Decode([]byte("plain ascii"), "no-such-charset")
	if got != "plain ascii" {
		t.Errorf("Decode = %q, want %q", got, "plain ascii")
	}
}

func TestDecode_InvalidUTF8NeverFails(t *testing.T) {
	body := []byte{'o', 'k', 0xFF, 0xFE, '!'}
	got := Decode(body, "")
	if !strings.Contains(got, "ok") || !strings.Contains(got, "!") {
		t.Errorf("Decode lost valid bytes: %q", got)
	}
	if !strings.ContainsRune(got, '�') {
		t.Errorf("Decode did not substitute replacement runes: %q", got)
	}
}

func TestDecode_UTF8Passthrough(t *testing.T) {
	if got := Decode([]byte("héllo"), "utf-8"); got != "héllo" {
		t.Errorf("Decode utf-8 = %q, want %q", got, "héllo")
	}
}
