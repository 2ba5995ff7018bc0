package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a framework failure
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInstantiation Kind = "instantiation"
	KindInjection     Kind = "injection"
	KindDispatch      Kind = "dispatch"
)

// FrameworkError is the single error type produced by the container,
// the route builder and the dispatcher.
type FrameworkError struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *FrameworkError) Error() string {
	if e == nil {
		return "unknown framework error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Subject != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind, e.Subject, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FrameworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another FrameworkError of the same kind, so a bare
// &FrameworkError{Kind: k} can be used as a target.
func (e *FrameworkError) Is(target error) bool {
	t, ok := target.(*FrameworkError)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind && (t.Subject == "" || t.Subject == e.Subject)
}

// Warning reports whether the error must never abort startup.
func (e *FrameworkError) Warning() bool {
	return e != nil && e.Kind == KindInjection
}

// NewConfigurationError reports a missing or invalid bootstrap setting,
// an unknown scan package, or a broken route declaration.
func NewConfigurationError(subject, message string, cause error) *FrameworkError {
	return &FrameworkError{Kind: KindConfiguration, Subject: subject, Message: message, Cause: cause}
}

// NewInstantiationError reports that a managed class could not be constructed.
func NewInstantiationError(class, message string, cause error) *FrameworkError {
	return &FrameworkError{Kind: KindInstantiation, Subject: class, Message: message, Cause: cause}
}

// NewInjectionWarning reports a managed field that was left unset.
func NewInjectionWarning(field, message string) *FrameworkError {
	return &FrameworkError{Kind: KindInjection, Subject: field, Message: message}
}

// NewDispatchError reports a failed handler invocation.
func NewDispatchError(path, message string, cause error) *FrameworkError {
	return &FrameworkError{Kind: KindDispatch, Subject: path, Message: message, Cause: cause}
}

// KindOf returns the kind of the first FrameworkError in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *FrameworkError
	if stderrors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a FrameworkError of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
