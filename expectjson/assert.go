package expectjson

import (
	"github.com/stretchr/testify/assert"
)

// TestingT is the subset of testing.T that the assertion entry points need.
// It is satisfied by *testing.T and by any compatible test-context type.
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type tHelper interface {
	Helper()
}

// AssertEqual fails the test unless the actual value matches the expected
// value under MatchExact semantics. The failure message lists every
// discrepancy found, not just the first. It returns true on success.
func AssertEqual(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return reportResult(t, MatchExact(expected, actual), msgAndArgs...)
}

// AssertContains fails the test unless the actual value matches the expected
// value under MatchContains semantics (extra actual object keys ignored).
// It returns true on success.
func AssertContains(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return reportResult(t, MatchContains(expected, actual), msgAndArgs...)
}

// AssertArrayContains fails the test unless every element of the expected
// array matches some element of the actual array, under MatchArrayContains
// semantics. It returns true on success.
func AssertArrayContains(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return reportResult(t, MatchArrayContains(expected, actual), msgAndArgs...)
}

func reportResult(t TestingT, result Result, msgAndArgs ...interface{}) bool {
	if result.OK() {
		return true
	}
	return assert.Fail(t, result.String(), msgAndArgs...)
}
