package textenc

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// Charset extracts the charset parameter from a Content-Type header value.
// It returns "" when the header is missing, unparseable, or carries no
// charset.
func Charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Decode converts a response body to a UTF-8 string using the declared
// charset. An unknown charset or undecodable input falls back to reading
// the bytes as UTF-8 with replacement runes for invalid sequences, so
// Decode never fails.
func Decode(body []byte, charset string) string {
	if charset == "" || isUTF8Name(charset) {
		return asUTF8(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return asUTF8(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return asUTF8(body)
	}
	return string(decoded)
}

func isUTF8Name(charset string) bool {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

func asUTF8(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), string(utf8.RuneError))
}
