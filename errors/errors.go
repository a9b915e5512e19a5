package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/reelforge/reelforge-api/log"
	"github.com/xeipuuv/gojsonschema"
)

type apiError struct {
	Msg    string `json:"message"`
	Status int    `json:"status"`
	Err    error  `json:"-"`
}

func writeHttpError(w http.ResponseWriter, msg string, status int, err error) apiError {
	var errorDetail string
	if err != nil {
		errorDetail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg, "error_detail": errorDetail}); err != nil {
		log.LogNoRequestID("error writing HTTP error", "http_error_msg", msg, "error", err)
	}

	return apiError{msg, status, err}
}

// HTTP Errors
func WriteHTTPUnauthorized(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusUnauthorized, err)
}

func WriteHTTPBadRequest(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusBadRequest, err)
}

func WriteHTTPNotFound(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusNotFound, err)
}

func WriteHTTPUnsupportedMediaType(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusUnsupportedMediaType, err)
}

func WriteHTTPTooManyRequests(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusTooManyRequests, err)
}

func WriteHTTPInternalServerError(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusInternalServerError, err)
}

func WriteHTTPBadBodySchema(where string, w http.ResponseWriter, errors []gojsonschema.ResultError) apiError {
	sb := strings.Builder{}
	sb.WriteString("Body validation error in ")
	sb.WriteString(where)
	sb.WriteString(" ")
	for i := 0; i < len(errors); i++ {
		sb.WriteString(errors[i].String())
		sb.WriteString(" ")
	}
	return writeHttpError(w, sb.String(), http.StatusBadRequest, nil)
}

// Kind classifies failures surfaced to callers and drives both the HTTP
// status of synchronous responses and the retry policy of the job runner.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindNotFound              Kind = "not_found"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindDependencyFailure     Kind = "dependency_failure"
	KindValidationFailure     Kind = "validation_failure"
	KindRenderFailure         Kind = "render_failure"
	KindTransient             Kind = "transient"
)

type kindedError struct {
	kind Kind
	err  error
}

func (e kindedError) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.err) }
func (e kindedError) Unwrap() error { return e.err }

// Wrap tags err with a Kind. Invalid input, not found and validation failures
// are also marked unretriable since retrying cannot change the outcome.
func Wrap(kind Kind, err error) error {
	wrapped := kindedError{kind: kind, err: err}
	switch kind {
	case KindInvalidInput, KindNotFound, KindValidationFailure, KindDependencyUnavailable:
		return Unretriable(wrapped)
	}
	return wrapped
}

func KindOf(err error) Kind {
	var ke kindedError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return ""
}

// WriteHTTPError maps a kinded error onto the right HTTP status code.
func WriteHTTPError(w http.ResponseWriter, msg string, err error) apiError {
	switch KindOf(err) {
	case KindInvalidInput:
		return WriteHTTPBadRequest(w, msg, err)
	case KindNotFound:
		return WriteHTTPNotFound(w, msg, err)
	case KindDependencyUnavailable:
		return writeHttpError(w, msg, http.StatusPreconditionFailed, err)
	case KindDependencyFailure:
		return writeHttpError(w, msg, http.StatusBadGateway, err)
	case KindValidationFailure:
		return writeHttpError(w, msg, http.StatusUnprocessableEntity, err)
	default:
		return WriteHTTPInternalServerError(w, msg, err)
	}
}

// unretriableError is an error that should stop any retry loop that sees it.
type unretriableError struct{ err error }

func (e unretriableError) Error() string { return e.err.Error() }
func (e unretriableError) Unwrap() error { return e.err }

func Unretriable(err error) error {
	return unretriableError{err: err}
}

func IsUnretriable(err error) bool {
	var ue unretriableError
	return errors.As(err, &ue)
}
