package services

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError is returned for every failed call to a resource API, whether
// the request never completed or the upstream answered with a non-2xx status.
type FetchError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	// Message is the upstream's own error text, when it sent one.
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("request failed with status code %d", e.StatusCode)
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "request failed"
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports the upstream status code, or 0 for transport failures.
func (e *FetchError) HTTPStatus() int {
	return e.StatusCode
}

func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// IsUnreachable reports whether the upstream never produced a response.
func IsUnreachable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == 0
}
