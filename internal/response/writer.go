package response

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type writerState int

const (
	StateWritingStatusLine writerState = iota
	StateWritingHeaders
	StateWritingBody
	StateDone
)

// Writer emits one response in wire order: status line, headers, body.
type Writer struct {
	writer io.Writer
	state  writerState
	caser  cases.Caser
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: w,
		state:  StateWritingStatusLine,
		caser:  cases.Title(language.English),
	}
}

func (w *Writer) WriteStatusLine(statusCode StatusCode, text string) error {
	if w.state != StateWritingStatusLine {
		return fmt.Errorf("writer state out-of-order")
	}

	line := "HTTP/1.1 " + strconv.Itoa(int(statusCode)) + " " + text + "\r\n"
	if _, err := io.WriteString(w.writer, line); err != nil {
		return fmt.Errorf("error writing status line: %w", err)
	}

	w.state = StateWritingHeaders
	return nil
}

// WriteHeaders writes the fields in order, followed by the blank line that
// ends the header block. Names are normalised to title case, so
// "X-Request-ID" goes out as "X-Request-Id" and "ETag" as "Etag".
func (w *Writer) WriteHeaders(fields []Field) error {
	if w.state != StateWritingHeaders {
		return fmt.Errorf("writer state out-of-order")
	}

	for _, f := range fields {
		line := w.caser.String(f.Name) + ": " + f.Value + "\r\n"
		if _, err := io.WriteString(w.writer, line); err != nil {
			return fmt.Errorf("error writing header %s: %w", f.Name, err)
		}
	}
	if _, err := io.WriteString(w.writer, "\r\n"); err != nil {
		return fmt.Errorf("error writing headers: %w", err)
	}

	w.state = StateWritingBody
	return nil
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.state != StateWritingBody {
		return 0, fmt.Errorf("writer state out-of-order")
	}

	w.state = StateDone
	return w.writer.Write(p)
}
