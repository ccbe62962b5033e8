// Package assert provides minimal test assertion helpers.
package assert

import (
	"cmp"
	"reflect"
	"strings"
	"testing"
)

// Equal fails the test if got != want.
func Equal[T any](t *testing.T, want, got T, msg string) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Errorf("%s: want %v, got %v", msg, want, got)
	}
}

// NotEqual fails the test if got == want.
func NotEqual[T any](t *testing.T, want, got T, msg string) {
	t.Helper()
	if reflect.DeepEqual(want, got) {
		t.Errorf("%s: expected values to differ, both were %v", msg, got)
	}
}

// True fails the test if cond is false.
func True(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// False fails the test if cond is true.
func False(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// Nil fails the test if v is not nil.
func Nil(t *testing.T, v any, msg string) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("%s: expected nil, got %v", msg, v)
	}
}

// NotNil fails the test if v is nil.
func NotNil(t *testing.T, v any, msg string) {
	t.Helper()
	if isNil(v) {
		t.Errorf("%s: expected non-nil", msg)
	}
}

// NoError fails the test if err is non-nil.
func NoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// Error fails the test if err is nil.
func Error(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// Len fails the test if the slice/map/string length does not equal want.
func Len(t *testing.T, want int, v any, msg string) {
	t.Helper()
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array, reflect.Chan:
		if rv.Len() != want {
			t.Errorf("%s: want length %d, got %d", msg, want, rv.Len())
		}
	default:
		t.Errorf("%s: value of kind %v has no length", msg, rv.Kind())
	}
}

// Contains fails the test if s does not contain substr.
func Contains(t *testing.T, s, substr string, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}

// Greater fails the test if a is not strictly greater than b.
func Greater[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a > b) {
		t.Errorf("%s: expected %v > %v", msg, a, b)
	}
}

// GreaterOrEqual fails the test if a is less than b.
func GreaterOrEqual[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if a < b {
		t.Errorf("%s: expected %v >= %v", msg, a, b)
	}
}

// Less fails the test if a is not strictly less than b.
func Less[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a < b) {
		t.Errorf("%s: expected %v < %v", msg, a, b)
	}
}

// LessOrEqual fails the test if a is greater than b.
func LessOrEqual[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if a > b {
		t.Errorf("%s: expected %v <= %v", msg, a, b)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
