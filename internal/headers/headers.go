package headers

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

const validFieldNameChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!#$%&'*+-.^_`|~"

// ErrMalformed is returned for header lines that cannot be split into a
// field-name and a value.
var ErrMalformed = errors.New("malformed header line")

// Headers maps lower-cased field names to values.
type Headers map[string]string

func NewHeaders() Headers {
	return map[string]string{}
}

// ParseLine parses a single header line (without its line terminator) and
// stores it. A repeated field-name replaces the earlier value.
func (h Headers) ParseLine(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("%w (no colon): %q", ErrMalformed, line)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w (empty field-name): %q", ErrMalformed, line)
	}
	for _, r := range key {
		if !strings.ContainsRune(validFieldNameChars, r) {
			return fmt.Errorf("%w (invalid character in field-name): %q", ErrMalformed, line)
		}
	}

	h.Set(key, strings.TrimSpace(value))
	return nil
}

func (h Headers) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

func (h Headers) Get(key string) string {
	return h[strings.ToLower(key)]
}

func (h Headers) Lookup(key string) (string, bool) {
	v, ok := h[strings.ToLower(key)]
	return v, ok
}

func (h Headers) Del(key string) {
	delete(h, strings.ToLower(key))
}

func (h Headers) Clone() Headers {
	if h == nil {
		return NewHeaders()
	}
	return maps.Clone(h)
}
