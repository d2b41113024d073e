package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	// Test: Valid single header
	h := NewHeaders()
	err := h.ParseLine("Host: localhost:42069")
	require.NoError(t, err)
	assert.Equal(t, "localhost:42069", h["host"])

	// Test: Surrounding whitespace is trimmed from key and value
	h = NewHeaders()
	err = h.ParseLine("   Accept :   application/json   ")
	require.NoError(t, err)
	assert.Equal(t, "application/json", h["accept"])

	// Test: Only the first colon splits
	h = NewHeaders()
	err = h.ParseLine("X-Forwarded-Host: example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", h["x-forwarded-host"])

	// Test: Empty value is allowed
	h = NewHeaders()
	err = h.ParseLine("X-Empty:")
	require.NoError(t, err)
	v, ok := h.Lookup("x-empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	// Invalid no colon
	h = NewHeaders()
	err = h.ParseLine("Host localhost 42069")
	require.ErrorIs(t, err, ErrMalformed)
	assert.Empty(t, h)

	// Invalid empty field-name
	err = h.ParseLine(": value")
	require.ErrorIs(t, err, ErrMalformed)

	// Invalid character in header key
	err = h.ParseLine("H©st: localhost:42069")
	require.ErrorIs(t, err, ErrMalformed)
	err = h.ParseLine("Ho st: localhost:42069")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseLineLastWins(t *testing.T) {
	h := NewHeaders()
	for _, line := range []string{
		"Set-Person: lane-loves-go",
		"set-person: prime-loves-zig",
		"SET-PERSON: tj-loves-ocaml",
	} {
		require.NoError(t, h.ParseLine(line))
	}
	assert.Len(t, h, 1)
	assert.Equal(t, "tj-loves-ocaml", h.Get("Set-Person"))
}

func TestHeadersCaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "text/html")
	assert.Equal(t, "text/html", h.Get("content-type"))
	assert.Equal(t, "text/html", h.Get("CONTENT-TYPE"))

	c := h.Clone()
	h.Del("CONTENT-type")
	_, ok := h.Lookup("content-type")
	assert.False(t, ok)
	assert.Equal(t, "text/html", c.Get("Content-Type"))
}
