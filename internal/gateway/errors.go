package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkError is a transport failure: the request never produced a
// response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a server response with a non-2xx status. Body keeps the raw
// payload for callers that want more than the message.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("http %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// Message extracts the server's error text when the body is a JSON object
// with an "error" or "message" field.
func (e *HTTPError) Message() string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Body, &payload) != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}
