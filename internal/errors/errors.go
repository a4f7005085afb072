// Package errors provides a component/category-tagged error type used
// throughout audiopipeline, trimmed from the teacher's telemetry-reporting
// error system down to what a library without a telemetry backend needs.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory groups errors for logging and metrics aggregation.
type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "validation"
	CategoryState       ErrorCategory = "state"
	CategoryNotFound    ErrorCategory = "not-found"
	CategoryConflict    ErrorCategory = "conflict"
	CategoryResource    ErrorCategory = "resource"
	CategoryProcessing  ErrorCategory = "processing"
	CategoryFormat      ErrorCategory = "format"
	CategoryIO          ErrorCategory = "io"
	CategoryCancelled   ErrorCategory = "cancelled"
	CategoryUnsupported ErrorCategory = "unsupported"
	CategoryGeneric     ErrorCategory = "generic"
)

// ComponentUnknown is used when no component was set on the builder.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with a component, category and free-form
// context, grounded on the teacher's internal/errors.EnhancedError minus
// its telemetry-reporting and call-stack component auto-detection.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	mu sync.RWMutex
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

func (ee *EnhancedError) Is(target error) bool {
	var other *EnhancedError
	if stderrors.As(target, &other) {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a defensive copy of the error's context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(ee.Context))
	maps.Copy(cp, ee.Context)
	return cp
}

// ErrorBuilder provides the fluent construction style used across the
// pipeline's sentinel errors (see audiopipeline/errors.go).
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder wrapping err (nil is valid — used for sentinels
// that are compared by category/component rather than message).
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, component: ComponentUnknown}
}

// Newf starts a builder from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any, 4)
	}
	eb.context[key] = value
	return eb
}

func (eb *ErrorBuilder) Build() *EnhancedError {
	err := eb.err
	if err == nil {
		err = stderrors.New(string(eb.category))
	}
	return &EnhancedError{
		Err:       err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// Wrap builds an EnhancedError from an existing error, preserving it as
// the Unwrap target.
func Wrap(err error, component string, category ErrorCategory) *EnhancedError {
	return New(err).Component(component).Category(category).Build()
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category == category
	}
	return false
}
