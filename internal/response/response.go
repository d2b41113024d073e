package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"
)

// ErrSerialize wraps failures to encode a JSON body.
var ErrSerialize = errors.New("response body serialization failed")

// Field is one response header. Fields are emitted in insertion order.
type Field struct {
	Name  string
	Value string
}

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyText
	BodyJSON
	BodyRaw
)

// Body is the payload of a response before it is written.
type Body interface {
	Kind() BodyKind
	Bytes() []byte
}

// Text is a UTF-8 text body (plain text or HTML).
type Text string

func (Text) Kind() BodyKind  { return BodyText }
func (t Text) Bytes() []byte { return []byte(t) }

// JSON holds an already encoded JSON document.
type JSON struct {
	data []byte
}

func (JSON) Kind() BodyKind   { return BodyJSON }
func (j JSON) Bytes() []byte  { return j.data }
func (j JSON) String() string { return string(j.data) }

// Raw is an uninterpreted byte body with a caller supplied content type.
type Raw struct {
	Data        []byte
	ContentType string
}

func (Raw) Kind() BodyKind  { return BodyRaw }
func (r Raw) Bytes() []byte { return r.Data }

// Response is built by chaining With* calls and then written once. It is
// not safe for concurrent use.
type Response struct {
	status  StatusCode
	text    string
	headers []Field
	body    Body
}

// New starts a response with an explicit status code and reason phrase.
func New(status StatusCode, text string) *Response {
	return &Response{status: status, text: text}
}

// NewStatus starts a response using the standard reason phrase for status.
func NewStatus(status StatusCode) *Response {
	return New(status, status.Text())
}

// OK starts a 200 response.
func OK() *Response {
	return NewStatus(StatusOK)
}

func (r *Response) WithStatus(status StatusCode, text string) *Response {
	r.status = status
	r.text = text
	return r
}

// WithHeader sets a header, replacing any existing header with the same
// case-insensitive name in place.
func (r *Response) WithHeader(name, value string) *Response {
	for i, f := range r.headers {
		if strings.EqualFold(f.Name, name) {
			r.headers[i].Value = value
			return r
		}
	}
	r.headers = append(r.headers, Field{Name: name, Value: value})
	return r
}

// WithDefaultHeader sets a header only if it is not already present.
func (r *Response) WithDefaultHeader(name, value string) *Response {
	if _, ok := r.Header(name); ok {
		return r
	}
	return r.WithHeader(name, value)
}

func (r *Response) WithText(s string) *Response {
	r.body = Text(s)
	return r.WithHeader("Content-Type", "text/plain")
}

func (r *Response) WithHTML(s string) *Response {
	r.body = Text(s)
	return r.WithHeader("Content-Type", "text/html")
}

// WithJSON encodes v as the body and sets Content-Type to application/json.
// On failure the response is left unchanged.
func (r *Response) WithJSON(v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	r.body = JSON{data: data}
	return r.WithHeader("Content-Type", "application/json"), nil
}

func (r *Response) WithRaw(data []byte, contentType string) *Response {
	r.body = Raw{Data: data, ContentType: contentType}
	return r.WithHeader("Content-Type", contentType)
}

func (r *Response) Status() StatusCode {
	return r.status
}

func (r *Response) StatusText() string {
	return r.text
}

func (r *Response) Header(name string) (string, bool) {
	for _, f := range r.headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (r *Response) Headers() []Field {
	return slices.Clone(r.headers)
}

// Body returns the active body variant, or nil when none was set.
func (r *Response) Body() Body {
	return r.body
}

func (r *Response) bodyBytes() []byte {
	if r.body == nil {
		return nil
	}
	return r.body.Bytes()
}

// wireHeaders returns the headers to emit, adding Content-Length from the
// body unless one was set explicitly.
func (r *Response) wireHeaders(body []byte) []Field {
	fields := slices.Clone(r.headers)
	if _, ok := r.Header("Content-Length"); !ok {
		fields = append(fields, Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
	}
	return fields
}

// WriteTo serializes the response and writes it to w in a single call.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := r.encode(buf); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.B)
	return int64(n), err
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = r.encode(&buf)
	return buf.Bytes()
}

func (r *Response) encode(w io.Writer) error {
	body := r.bodyBytes()
	rw := NewWriter(w)
	if err := rw.WriteStatusLine(r.status, r.text); err != nil {
		return err
	}
	if err := rw.WriteHeaders(r.wireHeaders(body)); err != nil {
		return err
	}
	if _, err := rw.WriteBody(body); err != nil {
		return fmt.Errorf("error writing body: %w", err)
	}
	return nil
}
