package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"

	errs "github.com/customeros/rfpstack/internal/errors"
)

type MultiErrors struct {
	Errors map[string][]ErrorInfo
}

type ErrorInfo struct {
	Message  string
	RawError error
}

func NewMultiErrors() *MultiErrors {
	return &MultiErrors{
		Errors: make(map[string][]ErrorInfo),
	}
}

func (e *MultiErrors) Add(key, message string, err error) {
	e.Errors[key] = append(e.Errors[key], ErrorInfo{
		Message:  message,
		RawError: err,
	})
}

func (e *MultiErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *MultiErrors) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	var parts []string
	for _, field := range keys {
		for _, err := range e.Errors[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, err.Message))
		}
	}
	return strings.Join(parts, " | ")
}

// Unwrap lets request validation failures match ErrValidation.
func (e *MultiErrors) Unwrap() error {
	return errs.ErrValidation
}

// Fields returns the messages per field for the response body.
func (e *MultiErrors) Fields() map[string][]string {
	fields := make(map[string][]string, len(e.Errors))
	for field, infos := range e.Errors {
		for _, info := range infos {
			fields[field] = append(fields[field], info.Message)
		}
	}
	return fields
}

// HttpStatus maps a service error to its response status.
func HttpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrRfpNotDraft),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrNoProposals):
		return http.StatusConflict
	case errors.Is(err, errs.ErrOracle), errors.Is(err, errs.ErrOracleResponse):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrConnection), errors.Is(err, errs.ErrConnectionTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
