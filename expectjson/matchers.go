package expectjson

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Matcher is a named predicate that can stand in for a literal value
// anywhere inside an expected JSON document. When the comparator reaches a
// Matcher it evaluates the corresponding actual node against the predicate
// instead of requiring literal equality.
//
// Matchers are stateless and safe for concurrent use; the same Matcher may
// appear in any number of expected documents.
type Matcher interface {
	// Describe returns a short human-readable description of what the
	// matcher accepts, used in discrepancy messages.
	Describe() string

	// Match returns nil if the actual value satisfies the predicate, or an
	// error describing why it does not.
	Match(actual ldvalue.Value) error
}

type matcherFunc struct {
	description string
	match       func(actual ldvalue.Value) error
}

func (m matcherFunc) Describe() string                 { return m.description }
func (m matcherFunc) Match(actual ldvalue.Value) error { return m.match(actual) }

// NewMatcher creates a custom Matcher from a description and a predicate
// function. This is the extension point for conditions the built-in
// matchers do not cover.
func NewMatcher(description string, match func(actual ldvalue.Value) error) Matcher {
	return matcherFunc{description: description, match: match}
}

// AnyString matches any JSON string, regardless of its content.
func AnyString() Matcher {
	return matcherFunc{
		description: "any string",
		match: func(actual ldvalue.Value) error {
			return requireString(actual)
		},
	}
}

// UUIDString matches a JSON string containing a syntactically valid UUID.
func UUIDString() Matcher {
	return matcherFunc{
		description: "a UUID string",
		match: func(actual ldvalue.Value) error {
			if err := requireString(actual); err != nil {
				return err
			}
			if _, err := uuid.Parse(actual.StringValue()); err != nil {
				return fmt.Errorf("%q is not a valid UUID", actual.StringValue())
			}
			return nil
		},
	}
}

// StringMatching matches a JSON string that matches the given regular
// expression. An invalid pattern is a programmer error and panics
// immediately, in the manner of regexp.MustCompile, rather than surfacing
// later as a comparison failure.
func StringMatching(pattern string) Matcher {
	rx := regexp.MustCompile(pattern)
	return matcherFunc{
		description: fmt.Sprintf("a string matching %q", pattern),
		match: func(actual ldvalue.Value) error {
			if err := requireString(actual); err != nil {
				return err
			}
			if !rx.MatchString(actual.StringValue()) {
				return fmt.Errorf("%q does not match %q", actual.StringValue(), pattern)
			}
			return nil
		},
	}
}

// IntBetween matches a JSON number that is an integer within the inclusive
// range [min, max].
func IntBetween(min, max int64) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("an integer between %d and %d", min, max),
		match: func(actual ldvalue.Value) error {
			if !actual.IsNumber() {
				return fmt.Errorf("expected a number, got %s", typeName(actual))
			}
			if !actual.IsInt() {
				return fmt.Errorf("%s is not an integer", describeValue(actual))
			}
			n := int64(actual.Float64Value())
			if n < min || n > max {
				return fmt.Errorf("%d is not between %d and %d", n, min, max)
			}
			return nil
		},
	}
}

// FloatBetween matches any JSON number within the inclusive range
// [min, max].
func FloatBetween(min, max float64) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("a number between %v and %v", min, max),
		match: func(actual ldvalue.Value) error {
			if !actual.IsNumber() {
				return fmt.Errorf("expected a number, got %s", typeName(actual))
			}
			n := actual.Float64Value()
			if n < min || n > max {
				return fmt.Errorf("%v is not between %v and %v", n, min, max)
			}
			return nil
		},
	}
}

// TimeMatchOption adjusts how TimeWithin interprets timestamps.
type TimeMatchOption func(*timeMatchConfig)

type timeMatchConfig struct {
	layout     string
	requireUTC bool
}

// TimeInUTC requires the timestamp to be expressed with a UTC offset, in
// addition to falling within the window.
func TimeInUTC() TimeMatchOption {
	return func(c *timeMatchConfig) {
		c.requireUTC = true
	}
}

// TimeFormat overrides the layout used to parse timestamps. The default is
// RFC 3339.
func TimeFormat(layout string) TimeMatchOption {
	return func(c *timeMatchConfig) {
		c.layout = layout
	}
}

// TimeWithin matches a JSON string containing a timestamp whose instant is
// within the given window of the current time, in either direction. By
// default the timestamp must be RFC 3339 and any zone offset is accepted.
func TimeWithin(window time.Duration, opts ...TimeMatchOption) Matcher {
	config := timeMatchConfig{layout: time.RFC3339}
	for _, opt := range opts {
		opt(&config)
	}
	return matcherFunc{
		description: fmt.Sprintf("a timestamp within %v of now", window),
		match: func(actual ldvalue.Value) error {
			if err := requireString(actual); err != nil {
				return err
			}
			parsed, err := time.Parse(config.layout, actual.StringValue())
			if err != nil {
				return fmt.Errorf("%q is not a valid timestamp: %v", actual.StringValue(), err)
			}
			if config.requireUTC {
				if _, offset := parsed.Zone(); offset != 0 {
					return fmt.Errorf("%q is not expressed in UTC", actual.StringValue())
				}
			}
			distance := time.Since(parsed)
			if distance < 0 {
				distance = -distance
			}
			if distance > window {
				return fmt.Errorf("%q is %v away from now, outside the %v window",
					actual.StringValue(), distance.Round(time.Millisecond), window)
			}
			return nil
		},
	}
}

// OneOf matches a value equal to any one of the given values. The values
// are normalized to their JSON shapes at construction time; a value that
// cannot be represented as JSON is a programmer error and panics
// immediately.
func OneOf(values ...interface{}) Matcher {
	allowed := make([]ldvalue.Value, 0, len(values))
	descriptions := make([]string, 0, len(values))
	for _, raw := range values {
		v, err := toValue(raw)
		if err != nil {
			panic(fmt.Sprintf("expectjson.OneOf: %s", err))
		}
		allowed = append(allowed, v)
		descriptions = append(descriptions, describeValue(v))
	}
	return matcherFunc{
		description: fmt.Sprintf("one of [%s]", strings.Join(descriptions, ", ")),
		match: func(actual ldvalue.Value) error {
			for _, v := range allowed {
				if v.Equal(actual) {
					return nil
				}
			}
			return fmt.Errorf("%s is not in the allowed set", describeValue(actual))
		},
	}
}

func requireString(actual ldvalue.Value) error {
	if actual.Type() != ldvalue.StringType {
		return fmt.Errorf("expected a string, got %s", typeName(actual))
	}
	return nil
}
