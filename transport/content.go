package transport

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Every backend puts file content on the wire as
// standard base64 and every backend decodes what it
// reads back. Callers of the provider contract only
// ever see plain bytes.

// EncodeContent returns the standard base64 encoding of
// raw.
func EncodeContent(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeContent decodes standard base64 as returned by
// the content APIs. Line breaks and surrounding spaces
// inserted by some backends are ignored.
func DecodeContent(encoded string) ([]byte, error) {
	const errCtx = "decoding content"

	cleaned := strings.Map(
		func(r rune) rune {
			switch r {
			case '\n', '\r', ' ', '\t':
				return -1
			default:
				return r
			}
		},
		encoded,
	)

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return raw, nil
}
