package web

import (
	"errors"
	"net/http"

	"grocery-planner/internal/auth"
	"grocery-planner/internal/grocery"
	"grocery-planner/internal/notify"
	"grocery-planner/internal/session"
)

const (
	msgBadRequest     = "Bad Request"
	msgUnauthorized   = "Unauthorized"
	msgInternalServer = "Internal Server Error"
)

var errNotLoggedIn = errors.New("not logged in")

// HTTPError is an error with an HTTP status and a user-facing message.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

func (he HTTPError) Unwrap() error {
	return he.cause
}

func badRequest(message string, cause error) *HTTPError {
	if message == "" {
		message = msgBadRequest
	}
	return &HTTPError{cause: cause, Code: http.StatusBadRequest, Message: message}
}

// statusFor maps an error returned by a handler to a status code and public message.
func statusFor(err error) (int, string) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Message
	case errors.Is(err, grocery.ErrEmptyName), errors.Is(err, grocery.ErrInvalidQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errNotLoggedIn), errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, auth.ErrStateMismatch), errors.Is(err, auth.ErrTokenExchange),
		errors.Is(err, auth.ErrIdentityFetch), errors.Is(err, auth.ErrProviderDenied):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, grocery.ErrUnknownProduct), errors.Is(err, grocery.ErrUnknownHistory):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, grocery.ErrDuplicateProduct):
		return http.StatusConflict, err.Error()
	case errors.Is(err, notify.ErrSharingDisabled):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, msgInternalServer
	}
}
