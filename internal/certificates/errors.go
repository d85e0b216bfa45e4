package certificates

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned when the referenced template does not
	// exist or is inactive.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrDuplicateCertificateID is returned when a caller-supplied identifier
	// is already taken, or when the allocator race loses at insert time.
	ErrDuplicateCertificateID = errors.New("certificate id already exists")

	ErrCertificateNotFound = errors.New("certificate not found")
	ErrAlreadyRevoked      = errors.New("certificate already revoked")
	ErrNotRevoked          = errors.New("certificate is not revoked")
)

// ValidationError reports a bad input field, rejected before the pipeline runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TemplateSyntaxError reports a malformed template body.
type TemplateSyntaxError struct {
	Err error
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("template syntax error: %v", e.Err)
}

func (e *TemplateSyntaxError) Unwrap() error { return e.Err }

// RenderError reports a substitution failure while executing a well-formed
// template.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
