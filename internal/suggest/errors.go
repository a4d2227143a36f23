package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrStatus is wrapped by every non-2xx response.
var ErrStatus = errors.New("unexpected status")

// statusError extracts a readable reason from an error response.
func statusError(statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		if msg != "" {
			return fmt.Errorf("%w: HTTP %d: %s", ErrStatus, statusCode, msg)
		}
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP 404: search endpoint not found (check site.base_url)", ErrStatus)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429: rate limited, slow down", ErrStatus)
	case http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP 500: internal server error", ErrStatus)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: HTTP %d: site temporarily unavailable", ErrStatus, statusCode)
	}

	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrStatus, statusCode, s)
}

// Friendly converts common network errors to short messages.
func Friendly(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the site running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check site.base_url)"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "request timed out"
	case strings.Contains(msg, "EOF"):
		return "connection closed unexpectedly"
	case strings.Contains(msg, "reset by peer"):
		return "connection reset by server"
	}
	return msg
}
