package httpharness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"

	"github.com/launchdarkly/go-http-harness/expectjson"
)

const debugBodyLimit = 10000

// TestResponse is a received response with its body fully read. Decoder
// methods turn the body into typed values, and Assert* methods check
// expectations against the test, each identifying the originating request
// in its failure message. Assert* methods report through the non-fatal
// assertion path, so one response can accumulate several failures, and they
// return the response for chaining.
type TestResponse struct {
	t          TestingT
	method     string
	url        string
	StatusCode int
	Header     http.Header
	body       []byte
	cookies    []*http.Cookie
	expected   expectedState
}

func (r *TestResponse) isSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// requestContext identifies the originating request in failure messages.
func (r *TestResponse) requestContext() string {
	return fmt.Sprintf("response to %s %s", r.method, r.url)
}

// Bytes returns the raw response body.
func (r *TestResponse) Bytes() []byte {
	return r.body
}

// Text returns the response body as a string.
func (r *TestResponse) Text() string {
	return string(r.body)
}

// JSON decodes the response body as JSON into the given value, failing the
// test if the body is not valid JSON.
func (r *TestResponse) JSON(out interface{}) {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	require.NoError(r.t, json.Unmarshal(r.body, out),
		"%s is not valid JSON: %q", r.requestContext(), truncateForMessage(r.body))
}

// JSONValue decodes the response body into a JSON-shaped value tree,
// failing the test if the body is not valid JSON.
func (r *TestResponse) JSONValue() ldvalue.Value {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	var v ldvalue.Value
	require.NoError(r.t, json.Unmarshal(r.body, &v),
		"%s is not valid JSON: %q", r.requestContext(), truncateForMessage(r.body))
	return v
}

// YAML decodes the response body as YAML into the given value, failing the
// test if the body is not valid YAML.
func (r *TestResponse) YAML(out interface{}) {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	require.NoError(r.t, yaml.Unmarshal(r.body, out),
		"%s is not valid YAML: %q", r.requestContext(), truncateForMessage(r.body))
}

// MsgPack decodes the response body as MessagePack into the given value,
// failing the test if the body is not valid MessagePack.
func (r *TestResponse) MsgPack(out interface{}) {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	require.NoError(r.t, msgpack.Unmarshal(r.body, out),
		"%s is not valid MessagePack (%d bytes)", r.requestContext(), len(r.body))
}

// Form decodes the response body as URL-encoded form values, failing the
// test if it cannot be parsed.
func (r *TestResponse) Form() url.Values {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	values, err := url.ParseQuery(string(r.body))
	require.NoError(r.t, err,
		"%s is not a valid URL-encoded form: %q", r.requestContext(), truncateForMessage(r.body))
	return values
}

// Cookies returns the cookies set by this response.
func (r *TestResponse) Cookies() []*http.Cookie {
	return r.cookies
}

// Cookie returns the cookie with the given name set by this response, or
// nil if the response did not set it.
func (r *TestResponse) Cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AssertStatus checks that the response has exactly the given status code.
func (r *TestResponse) AssertStatus(code int) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.Equal(r.t, code, r.StatusCode, "unexpected status for %s", r.requestContext())
	return r
}

// AssertStatusOK checks for status 200.
func (r *TestResponse) AssertStatusOK() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	return r.AssertStatus(http.StatusOK)
}

// AssertStatusSuccess checks that the status is in the 2xx range.
func (r *TestResponse) AssertStatusSuccess() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.True(r.t, r.isSuccess(),
		"expected a 2xx status for %s, got %d", r.requestContext(), r.StatusCode)
	return r
}

// AssertStatusFailure checks that the status is outside the 2xx range.
func (r *TestResponse) AssertStatusFailure() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.False(r.t, r.isSuccess(),
		"expected a non-2xx status for %s, got %d", r.requestContext(), r.StatusCode)
	return r
}

// AssertStatusBadRequest checks for status 400.
func (r *TestResponse) AssertStatusBadRequest() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	return r.AssertStatus(http.StatusBadRequest)
}

// AssertStatusUnauthorized checks for status 401.
func (r *TestResponse) AssertStatusUnauthorized() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	return r.AssertStatus(http.StatusUnauthorized)
}

// AssertStatusForbidden checks for status 403.
func (r *TestResponse) AssertStatusForbidden() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	return r.AssertStatus(http.StatusForbidden)
}

// AssertStatusNotFound checks for status 404.
func (r *TestResponse) AssertStatusNotFound() *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	return r.AssertStatus(http.StatusNotFound)
}

// AssertStatusInRange checks that the status is within [low, high]
// inclusive.
func (r *TestResponse) AssertStatusInRange(low, high int) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.True(r.t, r.StatusCode >= low && r.StatusCode <= high,
		"expected a status between %d and %d for %s, got %d", low, high, r.requestContext(), r.StatusCode)
	return r
}

// AssertHeader checks that the response carries the given header value.
func (r *TestResponse) AssertHeader(name, value string) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.Equal(r.t, value, r.Header.Get(name),
		"unexpected value of header %q in %s", name, r.requestContext())
	return r
}

// AssertCookie checks that the response set a cookie with the given name
// and value.
func (r *TestResponse) AssertCookie(name, value string) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	c := r.Cookie(name)
	if c == nil {
		assert.Fail(r.t, fmt.Sprintf("%s did not set cookie %q", r.requestContext(), name))
		return r
	}
	assert.Equal(r.t, value, c.Value, "unexpected value of cookie %q in %s", name, r.requestContext())
	return r
}

// AssertText checks that the response body is exactly the given string.
func (r *TestResponse) AssertText(expected string) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.Equal(r.t, expected, r.Text(), "unexpected body in %s", r.requestContext())
	return r
}

// AssertTextContains checks that the response body contains the given
// substring.
func (r *TestResponse) AssertTextContains(expected string) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.Contains(r.t, r.Text(), expected, "unexpected body in %s", r.requestContext())
	return r
}

// AssertJSON checks that the response body, decoded as JSON, is exactly
// structurally equal to the expected value. Matchers embedded in the
// expected value are evaluated in place of literal equality; see the
// expectjson package for the comparison rules.
func (r *TestResponse) AssertJSON(expected interface{}) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	expectjson.AssertEqual(r.t, expected, r.JSONValue(), r.requestContext())
	return r
}

// AssertJSONContains checks the response body against the expected value
// under partial-match semantics: every expected object key must be present
// and matching, extra actual keys are ignored.
func (r *TestResponse) AssertJSONContains(expected interface{}) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	expectjson.AssertContains(r.t, expected, r.JSONValue(), r.requestContext())
	return r
}

// AssertArrayContains checks that the response body is a JSON array
// containing a match for every element of the expected array, in any order
// and possibly among other elements.
func (r *TestResponse) AssertArrayContains(expected interface{}) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	expectjson.AssertArrayContains(r.t, expected, r.JSONValue(), r.requestContext())
	return r
}

// AssertYAML checks that the response body, decoded as YAML, is exactly
// structurally equal to the expected value under the same rules as
// AssertJSON.
func (r *TestResponse) AssertYAML(expected interface{}) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	var decoded interface{}
	r.YAML(&decoded)
	expectjson.AssertEqual(r.t, expected, decoded, r.requestContext())
	return r
}

// AssertMsgPack checks that the response body, decoded as MessagePack, is
// exactly structurally equal to the expected value under the same rules as
// AssertJSON.
func (r *TestResponse) AssertMsgPack(expected interface{}) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	var decoded interface{}
	r.MsgPack(&decoded)
	expectjson.AssertEqual(r.t, expected, decoded, r.requestContext())
	return r
}

// AssertForm checks that the response body, decoded as a URL-encoded form,
// equals the expected values.
func (r *TestResponse) AssertForm(expected url.Values) *TestResponse {
	if h, ok := r.t.(tHelper); ok {
		h.Helper()
	}
	assert.Equal(r.t, expected, r.Form(), "unexpected form body in %s", r.requestContext())
	return r
}

// Debug prints a formatted dump of the response to standard output: the
// originating request, the status (colored by range), the headers, and the
// body pretty-printed according to its content type. Large bodies are
// truncated. It returns the response so it can be dropped into an
// assertion chain while investigating a failure.
func (r *TestResponse) Debug() *TestResponse {
	r.debugTo(os.Stdout)
	return r
}

func (r *TestResponse) debugTo(w io.Writer) {
	fmt.Fprintf(w, "=== %s %s\n", r.method, r.url)
	fmt.Fprintf(w, "status: %s\n", colorForStatus(r.StatusCode)(fmt.Sprintf("%d", r.StatusCode)))
	for _, name := range sortedHeaderNames(r.Header) {
		for _, value := range r.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, value)
		}
	}
	fmt.Fprintf(w, "body (%d bytes):\n%s\n", len(r.body), r.formatBodyForDebug())
}

func colorForStatus(status int) func(...interface{}) string {
	switch {
	case status >= 200 && status < 300:
		return color.New(color.FgGreen).SprintFunc()
	case status >= 300 && status < 400:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgRed).SprintFunc()
	}
}

func (r *TestResponse) formatBodyForDebug() string {
	if len(r.body) == 0 {
		return "<empty>"
	}
	contentType := r.Header.Get("Content-Type")
	var text string
	switch {
	case strings.Contains(contentType, "json"):
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, r.body, "", "  "); err != nil {
			text = string(r.body)
		} else {
			text = pretty.String()
		}
	case strings.Contains(contentType, "msgpack"):
		return fmt.Sprintf("<MessagePack, %d bytes>", len(r.body))
	default:
		text = string(r.body)
	}
	if len(text) > debugBodyLimit {
		return text[:debugBodyLimit] + fmt.Sprintf("\n<truncated, %d bytes total>", len(r.body))
	}
	return text
}

func truncateForMessage(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
