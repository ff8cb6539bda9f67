package expectjson

import (
	"fmt"
	"strings"
)

// Result is the outcome of comparing an expected JSON value against an
// actual one. A Result with no discrepancies means the actual value
// satisfied the expectation.
//
// Comparisons always perform a full walk of the expected tree, so a Result
// lists every discrepancy that was found rather than only the first.
type Result struct {
	Discrepancies []Discrepancy
}

// Discrepancy is one location where the actual value diverged from the
// expected value.
type Discrepancy struct {
	// Path locates the divergent node, starting from "$" for the document
	// root, with ".name" for each object key and "[n]" for each array index
	// descended through.
	Path string

	// Reason is a human-readable description of the divergence.
	Reason string
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("at %s: %s", d.Path, d.Reason)
}

// OK returns true if the comparison found no discrepancies.
func (r Result) OK() bool {
	return len(r.Discrepancies) == 0
}

// String returns a multi-line report of every discrepancy, suitable for
// inclusion in a test failure message. It returns an empty string for a
// successful Result.
func (r Result) String() string {
	if r.OK() {
		return ""
	}
	noun := "discrepancies"
	if len(r.Discrepancies) == 1 {
		noun = "discrepancy"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d %s between expected and actual JSON:", len(r.Discrepancies), noun)
	for _, d := range r.Discrepancies {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	return sb.String()
}

func (r *Result) addDiscrepancy(path string, format string, args ...interface{}) {
	r.Discrepancies = append(r.Discrepancies, Discrepancy{
		Path:   path,
		Reason: fmt.Sprintf(format, args...),
	})
}
