package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrSlotTaken is the API's authoritative rejection of a slot that passed
	// the local pre-check.
	ErrSlotTaken         = errors.New("slot already booked")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed api response")
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func statusError(code int, body []byte) error {
	msg := errorMessage(body)
	switch code {
	case http.StatusConflict:
		return wrapStatus(ErrSlotTaken, msg)
	case http.StatusNotFound:
		return wrapStatus(ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return wrapStatus(ErrUnauthorized, msg)
	}
	return &APIError{StatusCode: code, Message: msg}
}

func wrapStatus(sentinel error, msg string) error {
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
