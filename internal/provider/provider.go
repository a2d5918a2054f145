// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider talks to the external data registry (Zenodo or a
// compatible deployment): record lookup and DOI resolution for import,
// deposition creation, file upload and publication for export.
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrRecordNotFound is returned when a record lookup or DOI search
// matches nothing.
var ErrRecordNotFound = errors.New("record not found")

// ErrAmbiguousSource is returned when a DOI search matches several
// distinct records and no single one can be chosen.
var ErrAmbiguousSource = errors.New("ambiguous record reference")

// ErrAuthorization is returned when the registry rejects the access
// token.
var ErrAuthorization = errors.New("access unauthorized - update access token")

// FieldError is one field-level message from a registry validation
// failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when the registry rejects a request with
// HTTP 400 and reports which metadata fields are wrong.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%q failed with %q", fe.Field, fe.Message))
	}
	return "registry rejected request: " + strings.Join(parts, "; ")
}

// checkStatus validates a deposit API response: 200/201/202 succeed, 400
// carries field-level validation messages, 401 means a bad token, and
// anything else is a generic registry failure.
func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	case http.StatusBadRequest:
		var payload struct {
			Message string       `json:"message"`
			Errors  []FieldError `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && len(payload.Errors) > 0 {
			return &ValidationError{Errors: payload.Errors}
		}
		return fmt.Errorf("registry returned HTTP 400")
	case http.StatusUnauthorized:
		return ErrAuthorization
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
