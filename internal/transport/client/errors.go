package client

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joshdurbin/linkvault/internal/domain"
)

const maxErrorBody = 4096

// StatusError is returned when the server answers with an unexpected status.
// It unwraps to the matching domain error so callers can use errors.Is.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusConflict:
		return domain.ErrAliasConflict
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusGone:
		return domain.ErrExpired
	case http.StatusForbidden:
		return domain.ErrInvalidPassword
	case http.StatusServiceUnavailable:
		return domain.ErrExhaustedRetries
	default:
		return nil
	}
}

func newStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
