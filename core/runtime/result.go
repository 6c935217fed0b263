package runtime

import (
	"github.com/artpar/anvil/core/validation"
)

// Result is the uniform outcome of a mutating operation. Success is
// authoritative: when it is false, Data is the zero value and Errors holds
// at least one entry.
type Result[T any] struct {
	Success bool                    `json:"success"`
	Data    T                       `json:"data,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// Ok wraps a successful value.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed result from field errors.
func Fail[T any](errs ...validation.FieldError) Result[T] {
	return Result[T]{Errors: errs}
}

// FailErr builds a failed result carrying err's message, not scoped to a
// field.
func FailErr[T any](err error) Result[T] {
	return Fail[T](validation.FieldError{Message: err.Error()})
}
