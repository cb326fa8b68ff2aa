package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// TypeStr returns the name of the type of `v`. Pointers to interfaces name the interface itself,
// which lets callers pass `(*SomeInterface)(nil)` to describe an expectation.
func TypeStr(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<unknown (nil interface)>"
	}
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		return t.Elem().String()
	}
	return t.String()
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected, actual interface{}) error {
	return errors.Errorf("expected %s but got %T", TypeStr(expected), actual)
}

// CollaboratorTypeError is used when a named collaborator built from config does not implement
// the interface its consumer needs.
func CollaboratorTypeError(name string, expected, actual interface{}) error {
	return errors.Errorf("collaborator %q should be an implementation of %s but it was a %T",
		name, TypeStr(expected), actual)
}
