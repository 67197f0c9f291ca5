package hxwire

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for engine operations.
var (
	ErrComponentNotFound = errors.New("hxwire: component not found")
	ErrTamperedSnapshot  = errors.New("hxwire: snapshot checksum mismatch")
	ErrHydration         = errors.New("hxwire: hydration failed")
	ErrInvalidMethodCall = errors.New("hxwire: invalid method call")
	ErrPropertyPath      = errors.New("hxwire: property path does not resolve")
	ErrNotRenderable     = errors.New("hxwire: component does not implement Renderer")
	ErrInvalidRequest    = errors.New("hxwire: malformed update request")
)

// IsNotFound checks if err is a component-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound)
}

// IsTampered checks if err reports a rejected snapshot.
func IsTampered(err error) bool {
	return errors.Is(err, ErrTamperedSnapshot)
}

// IsHydrationError checks if err is a hydration error.
func IsHydrationError(err error) bool {
	return errors.Is(err, ErrHydration)
}

// IsInvalidMethodCall checks if err is an invalid method call.
func IsInvalidMethodCall(err error) bool {
	return errors.Is(err, ErrInvalidMethodCall)
}

// IsPropertyPathError checks if err is an unresolvable property path.
func IsPropertyPathError(err error) bool {
	return errors.Is(err, ErrPropertyPath)
}

// IsInvalidRequest checks if err reports a malformed update request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// MethodCallError describes a call in a mutation batch that could not be
// dispatched. Remaining calls of the batch are not executed.
type MethodCallError struct {
	Index  int
	Method string
	Reason string
}

func (e *MethodCallError) Error() string {
	return fmt.Sprintf("hxwire: invalid method call %q (call %d): %s", e.Method, e.Index, e.Reason)
}

func (e *MethodCallError) Unwrap() error { return ErrInvalidMethodCall }

// PropertyPathError describes a property write whose path does not resolve
// against the component's structure.
type PropertyPathError struct {
	Path   string
	Reason string
}

func (e *PropertyPathError) Error() string {
	return fmt.Sprintf("hxwire: property path %q: %s", e.Path, e.Reason)
}

func (e *PropertyPathError) Unwrap() error { return ErrPropertyPath }

// ValidationErrors maps a field path to a client-visible message.
//
// Component methods return ValidationErrors to report validation problems;
// the engine collects them into the snapshot's memo.errors and keeps going
// instead of failing the request.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "hxwire: validation failed: " + strings.Join(parts, "; ")
}

// Invalid returns a ValidationErrors with a single entry.
//
//	if c.Title == "" {
//	    return hxwire.Invalid("title", "Title is required")
//	}
func Invalid(field, message string) error {
	return ValidationErrors{field: message}
}

func hydrationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrHydration, fmt.Sprintf(format, args...))
}
