package domain

import (
	"fmt"
	"strings"
)

// FieldError is a single violated request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every invalid field of a request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Details(), "; ")
}

// Details renders each field error as "field: message"
func (e *ValidationError) Details() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.String()
	}
	return out
}

// HasField reports whether the named field failed
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ConfigurationError indicates a missing or unusable credential
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// UpstreamError is a failed call to the NeoWs API
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("NASA %s request failed: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("NASA %s request failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AnalysisFailedError is a text generation call that did not return
type AnalysisFailedError struct {
	Err error
}

func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("failed to analyze asteroid data: %v", e.Err)
}

func (e *AnalysisFailedError) Unwrap() error {
	return e.Err
}
