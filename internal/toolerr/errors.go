// Package toolerr defines the error taxonomy shared by every stage of a tool
// invocation: validation, resolution, upstream calls and normalization.
package toolerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	UnknownTool              Kind = "UnknownTool"
	MissingRequiredParameter Kind = "MissingRequiredParameter"
	InvalidEnumValue         Kind = "InvalidEnumValue"
	TypeMismatch             Kind = "TypeMismatch"
	UnknownPreset            Kind = "UnknownPreset"

	UpstreamRateLimited Kind = "UpstreamRateLimited"
	UpstreamRejected    Kind = "UpstreamRejected"
	UpstreamUnreachable Kind = "UpstreamUnreachable"

	AllSubrequestsFailed Kind = "AllSubrequestsFailed"
)

// CallerError reports whether the kind is raised before any network call.
func (k Kind) CallerError() bool {
	switch k {
	case UnknownTool, MissingRequiredParameter, InvalidEnumValue, TypeMismatch, UnknownPreset:
		return true
	}
	return false
}

// Retryable reports whether re-invoking later may succeed without changing
// the parameters.
func (k Kind) Retryable() bool {
	return k == UpstreamRateLimited || k == UpstreamUnreachable
}

// Error is a classified gateway failure.
type Error struct {
	Kind     Kind
	Message  string
	Tool     string
	Param    string
	Endpoint string
	Cause    error
	// Failures holds the per-subrequest errors of an AllSubrequestsFailed.
	Failures []*Error
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that carries cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Tool != "" {
		b.WriteString(" [" + e.Tool + "]")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the caller may retry the same invocation later.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// WithTool returns a copy of e attributed to tool.
func (e *Error) WithTool(tool string) *Error {
	c := *e
	c.Tool = tool
	return &c
}

// WithEndpoint returns a copy of e attributed to an upstream function.
func (e *Error) WithEndpoint(endpoint string) *Error {
	c := *e
	c.Endpoint = endpoint
	return &c
}

type errorView struct {
	Kind      Kind     `json:"kind"`
	Message   string   `json:"message"`
	Retryable bool     `json:"retryable"`
	Tool      string   `json:"tool,omitempty"`
	Param     string   `json:"param,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Failures  []*Error `json:"failures,omitempty"`
}

// MarshalJSON renders the error as the structured object returned to MCP
// clients. The cause is folded into the message.
func (e *Error) MarshalJSON() ([]byte, error) {
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	return json.Marshal(errorView{
		Kind:      e.Kind,
		Message:   msg,
		Retryable: e.Retryable(),
		Tool:      e.Tool,
		Param:     e.Param,
		Endpoint:  e.Endpoint,
		Failures:  e.Failures,
	})
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" if err is not classified.
func KindOf(err error) Kind {
	if te, ok := As(err); ok {
		return te.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
