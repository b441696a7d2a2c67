package build

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// lookupCharset resolves a WHATWG encoding label such as "utf-8" or "gbk".
func lookupCharset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	return enc, nil
}

// decode converts content in charset to a Go string.
func decode(content []byte, charset string) (string, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encode converts text to charset.
func encode(text, charset string) ([]byte, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder().Bytes([]byte(text))
}
