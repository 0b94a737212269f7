// Package tassert collects the small assertion helpers shared by this
// module's package tests, so a test body reads as a sequence of
// expectations instead of a sequence of manual if-then-t.Fatal blocks.
package tassert

import "testing"

// CheckFatal fails and stops the test immediately if err is non-nil.
func CheckFatal(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// CheckError records a failure but lets the test continue if err is
// non-nil.
func CheckError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// Fatalf fails and stops the test immediately if cond is false.
func Fatalf(t *testing.T, cond bool, msg string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(msg, args...)
	}
}

// Errorf records a failure but lets the test continue if cond is false.
func Errorf(t *testing.T, cond bool, msg string, args ...any) {
	t.Helper()
	if !cond {
		t.Errorf(msg, args...)
	}
}
