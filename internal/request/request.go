package request

import (
	"bytes"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nhdewitt/ticker-from-tcp/internal/headers"
)

// Request is a parsed inbound request. It is never mutated after Parse
// returns it; accessors hand out copies of the mutable parts.
type Request struct {
	method  Method
	path    string
	headers headers.Headers
	query   map[string]string
	body    []byte
}

// New builds a Request from already-parsed parts. Header names are
// lower-cased.
func New(method Method, path string, h map[string]string, query map[string]string, body []byte) *Request {
	hs := headers.NewHeaders()
	for k, v := range h {
		hs.Set(k, v)
	}
	q := maps.Clone(query)
	if q == nil {
		q = map[string]string{}
	}
	return &Request{
		method:  method,
		path:    path,
		headers: hs,
		query:   q,
		body:    bytes.Clone(body),
	}
}

func (r *Request) Method() Method {
	return r.method
}

func (r *Request) Path() string {
	return r.path
}

// Header returns the value of a header, looked up case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	return r.headers.Lookup(name)
}

func (r *Request) Headers() headers.Headers {
	return r.headers.Clone()
}

func (r *Request) Query(key string) (string, bool) {
	v, ok := r.query[key]
	return v, ok
}

func (r *Request) QueryParams() map[string]string {
	return maps.Clone(r.query)
}

func (r *Request) Body() []byte {
	return bytes.Clone(r.body)
}

// Target rebuilds the request target from the path and query parameters.
// Query keys are emitted in sorted order; keys with an empty value are
// emitted bare.
func (r *Request) Target() string {
	if len(r.query) == 0 {
		return r.path
	}
	var b strings.Builder
	b.WriteString(r.path)
	b.WriteByte('?')
	for i, k := range slices.Sorted(maps.Keys(r.query)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		if v := r.query[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// AcceptsJSON reports whether the Accept header asks for application/json.
func (r *Request) AcceptsJSON() bool {
	accept, ok := r.headers.Lookup("accept")
	return ok && strings.Contains(accept, "application/json")
}

// RequireHeaders fails with MissingRequiredHeaders naming every absent header.
func RequireHeaders(r *Request, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := r.headers.Lookup(name); !ok {
			missing = append(missing, strings.ToLower(name))
		}
	}
	if len(missing) > 0 {
		return &ParseError{Kind: MissingRequiredHeaders, Detail: strings.Join(missing, ", ")}
	}
	return nil
}

// Parse parses a complete request held in memory. Lines may end in CRLF or a
// bare LF. The request line and headers must be valid UTF-8; the body is
// everything after the first blank line, taken verbatim.
func Parse(data []byte) (*Request, error) {
	head, body := data, []byte(nil)
	if end, ok := headerEnd(data); ok {
		head, body = data[:end], data[end:]
	}
	if !utf8.Valid(head) {
		return nil, &ParseError{Kind: InvalidFormat, Detail: "request head is not valid UTF-8"}
	}

	lines := splitLines(string(head))
	if len(lines) == 0 {
		return nil, ErrInvalidFormat
	}

	parts := strings.Fields(lines[0])
	if len(parts) < 2 {
		return nil, &ParseError{Kind: InvalidRequestLine, Detail: lines[0]}
	}

	method, err := ParseMethod(parts[0])
	if err != nil {
		return nil, err
	}

	path, query, err := parseTarget(parts[1])
	if err != nil {
		return nil, err
	}

	hs := headers.NewHeaders()
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		if err := hs.ParseLine(line); err != nil {
			return nil, &ParseError{Kind: InvalidHeader, Detail: line, Err: err}
		}
	}

	r := &Request{
		method:  method,
		path:    path,
		headers: hs,
		query:   query,
		body:    []byte{},
	}
	if len(body) > 0 {
		r.body = bytes.Clone(body)
	}
	return r, nil
}

// headerEnd returns the offset just past the blank line that terminates the
// header block. The first line is always the request line, even when empty.
func headerEnd(data []byte) (int, bool) {
	pos := 0
	for first := true; pos < len(data); first = false {
		idx := bytes.IndexByte(data[pos:], '\n')
		if idx == -1 {
			return 0, false
		}
		line := bytes.TrimSuffix(data[pos:pos+idx], []byte("\r"))
		pos += idx + 1
		if !first && len(line) == 0 {
			return pos, true
		}
	}
	return 0, false
}

// splitLines splits on LF, dropping one trailing CR per line. A trailing
// terminator does not produce an extra empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func parseTarget(target string) (string, map[string]string, error) {
	path, rawQuery, hasQuery := strings.Cut(target, "?")
	if !strings.HasPrefix(path, "/") {
		return "", nil, &ParseError{Kind: URLParse, Detail: target}
	}

	query := map[string]string{}
	if !hasQuery {
		return path, query, nil
	}
	for _, piece := range strings.Split(rawQuery, "&") {
		if piece == "" {
			continue
		}
		k, v, _ := strings.Cut(piece, "=")
		query[k] = v
	}
	return path, query, nil
}
