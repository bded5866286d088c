package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrHandlerPanic is matched by every PanicError via errors.Is.
var ErrHandlerPanic = errors.New("handler panicked")

// PanicError is a recovered handler panic.
type PanicError struct {
	// Value is whatever was passed to panic.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Is reports whether target is ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// Unwrap returns the panic value if it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Kind returns "panic".
func (e *PanicError) Kind() string {
	return "panic"
}

// kinder is implemented by errors that name their own kind.
type kinder interface {
	Kind() string
}

// Kind returns a short name for the error's kind.
//
// Errors anywhere in the chain that implement Kind() string name themselves.
// Otherwise the dynamic type name of err is used with any pointer prefix
// removed, e.g. "errors.errorString" or "fs.PathError".
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}

	return strings.TrimLeft(reflect.TypeOf(err).String(), "*")
}
