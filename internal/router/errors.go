package router

import (
	"errors"
	"fmt"

	"github.com/nhdewitt/ticker-from-tcp/internal/response"
)

// HandlerError is a Route failure that should be answered with a specific
// status. Message is safe to show to the client; Err is only logged.
type HandlerError struct {
	Status  response.StatusCode
	Message string
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func Errorf(status response.StatusCode, err error, format string, args ...any) *HandlerError {
	return &HandlerError{Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorResponse maps a handler error to the response sent to the client.
// Unclassified errors become a bare 500.
func ErrorResponse(err error) *response.Response {
	var herr *HandlerError
	if errors.As(err, &herr) {
		status := herr.Status
		if status == 0 {
			status = response.StatusInternalServerError
		}
		resp := response.NewStatus(status)
		if herr.Message != "" {
			resp.WithText(herr.Message)
		}
		return resp
	}
	return response.NewStatus(response.StatusInternalServerError).WithText("Internal Server Error")
}
