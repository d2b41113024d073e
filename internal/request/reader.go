package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	bufferSize = 4096
	// DefaultMaxBytes bounds ReadFrom when no limit is given.
	DefaultMaxBytes = 1 << 20
)

// ReadFrom reads one request from r into memory. It keeps reading until the
// header block is complete and, when a Content-Length header is present, that
// many body bytes have arrived. Reading also stops at EOF. A request larger
// than limit fails with ErrRequestTooLarge; zero bytes followed by EOF fail
// with ErrEmptyRequest.
func ReadFrom(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	buf := make([]byte, min(bufferSize, limit+1))
	readToIndex := 0
	want := -1

	for {
		if readToIndex == len(buf) {
			if len(buf) > limit {
				return nil, ErrRequestTooLarge
			}
			tmpBuf := make([]byte, min(len(buf)*2, limit+1))
			copy(tmpBuf, buf[:readToIndex])
			buf = tmpBuf
		}

		n, err := r.Read(buf[readToIndex:])
		if n > 0 {
			readToIndex += n
			if readToIndex > limit {
				return nil, ErrRequestTooLarge
			}

			if want < 0 {
				if end, ok := headerEnd(buf[:readToIndex]); ok {
					cl, perr := contentLength(buf[:end])
					if perr != nil {
						return nil, perr
					}
					if cl > limit-end {
						return nil, ErrRequestTooLarge
					}
					want = end + cl
				}
			}
			if want >= 0 && readToIndex >= want {
				return buf[:readToIndex], nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if readToIndex == 0 {
					return nil, ErrEmptyRequest
				}
				return buf[:readToIndex], nil
			}
			return nil, err
		}
	}
}

// contentLength scans a header block for Content-Length. Absent means zero.
// Repeated Content-Length lines must agree.
func contentLength(head []byte) (int, error) {
	n, seen := 0, false
	for i, line := range bytes.Split(head, []byte("\n")) {
		if i == 0 {
			continue
		}
		name, value, ok := bytes.Cut(bytes.TrimSuffix(line, []byte("\r")), []byte(":"))
		if !ok || !strings.EqualFold(string(bytes.TrimSpace(name)), "content-length") {
			continue
		}
		value = bytes.TrimSpace(value)
		v, err := strconv.Atoi(string(value))
		if err != nil || v < 0 {
			return 0, &ParseError{
				Kind:   InvalidHeader,
				Detail: fmt.Sprintf("content-length %q", value),
				Err:    err,
			}
		}
		if seen && v != n {
			return 0, &ParseError{
				Kind:   InvalidHeader,
				Detail: fmt.Sprintf("conflicting content-length values %d and %d", n, v),
			}
		}
		n, seen = v, true
	}
	return n, nil
}
