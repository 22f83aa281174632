package schema

import (
	"fmt"
	"slices"
)

// Result holds either a value or the reason it could not be obtained.
// The zero value is unavailable with an empty reason.
type Result[T any] struct {
	value  T
	reason string
	ok     bool
}

// Ok wraps an available value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Unavailable records why a value could not be obtained.
func Unavailable[T any](reason string) Result[T] {
	return Result[T]{reason: reason}
}

// Get returns the value and whether it is available.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// OK reports whether the value is available.
func (r Result[T]) OK() bool {
	return r.ok
}

// Reason returns why the value is unavailable, or "" when it is available.
func (r Result[T]) Reason() string {
	return r.reason
}

// MapResult applies fn to an available value and passes unavailability through unchanged.
// An error from fn is returned as is, since it signals a contract violation.
func MapResult[T, U any](r Result[T], fn func(T) (U, error)) (Result[U], error) {
	v, ok := r.Get()
	if !ok {
		return Unavailable[U](r.reason), nil
	}
	out, err := fn(v)
	if err != nil {
		return Result[U]{}, err
	}
	return Ok(out), nil
}

// CategoriesUnavailableError reports the categories whose data could not be retrieved.
type CategoriesUnavailableError struct {
	Categories []Category
}

// Error implements error. Categories are listed in sorted order.
func (e *CategoriesUnavailableError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = c.DisplayName()
	}
	slices.Sort(names)
	return fmt.Sprintf("Cannot compute commitment because %s data could not be retrieved.", ItemsInSeries(names, "and", false))
}
