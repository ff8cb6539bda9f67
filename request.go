package httpharness

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// TestRequest accumulates the method, path, headers, query parameters,
// cookies, and body of one request before it is dispatched with Send or
// Expect. All builder methods return the same request for chaining. A
// TestRequest is not safe for concurrent use; build and send it from one
// goroutine.
type TestRequest struct {
	h                   *TestHarness
	method              string
	path                string
	headers             http.Header
	query               []queryParam
	cookies             []*http.Cookie
	body                []byte
	impliedContentType  string
	explicitContentType string
	expected            *expectedState
	saveCookies         *bool
	timeout             time.Duration
	timeoutSet          bool
	ctx                 context.Context
	err                 error
}

func newTestRequest(h *TestHarness, method, path string) *TestRequest {
	return &TestRequest{
		h:       h,
		method:  method,
		path:    path,
		headers: make(http.Header),
	}
}

// Header adds a header to this request. Headers set here take precedence
// over the harness-wide defaults for the same name.
func (r *TestRequest) Header(name, value string) *TestRequest {
	r.headers.Add(name, value)
	return r
}

// Headers adds every header in the given set to this request.
func (r *TestRequest) Headers(headers http.Header) *TestRequest {
	for name, values := range headers {
		for _, value := range values {
			r.headers.Add(name, value)
		}
	}
	return r
}

// ContentType sets the Content-Type of this request, overriding both the
// harness default and the type implied by the body encoding.
func (r *TestRequest) ContentType(contentType string) *TestRequest {
	r.explicitContentType = contentType
	return r
}

// BasicAuth sets an Authorization header with HTTP basic credentials.
func (r *TestRequest) BasicAuth(username, password string) *TestRequest {
	auth := username + ":" + password
	return r.Header("Authorization", "Basic "+base64Encode(auth))
}

// BearerToken sets an Authorization header carrying a bearer token.
func (r *TestRequest) BearerToken(token string) *TestRequest {
	return r.Header("Authorization", "Bearer "+token)
}

// QueryParam appends one query parameter to the request URL. Parameters
// keep the order in which they were added, after any harness defaults.
func (r *TestRequest) QueryParam(key, value string) *TestRequest {
	r.query = append(r.query, queryParam{key: key, value: value})
	return r
}

// QueryParams appends one query parameter per value in the given set, in
// sorted key order.
func (r *TestRequest) QueryParams(params map[string]string) *TestRequest {
	for _, key := range sortedKeys(params) {
		r.QueryParam(key, params[key])
	}
	return r
}

// ClearQueryParams removes the query parameters added to this request so
// far. Harness-wide default parameters are unaffected.
func (r *TestRequest) ClearQueryParams() *TestRequest {
	r.query = nil
	return r
}

// Cookie attaches a cookie to this request only, in addition to whatever is
// in the harness jar.
func (r *TestRequest) Cookie(c *http.Cookie) *TestRequest {
	r.cookies = append(r.cookies, c)
	return r
}

// JSON sets the request body to the JSON encoding of the given value, with
// an application/json content type.
func (r *TestRequest) JSON(value interface{}) *TestRequest {
	data, err := json.Marshal(value)
	if err != nil {
		r.err = fmt.Errorf("could not encode request body as JSON: %w", err)
		return r
	}
	return r.setBody(data, "application/json")
}

// YAML sets the request body to the YAML encoding of the given value, with
// an application/yaml content type.
func (r *TestRequest) YAML(value interface{}) *TestRequest {
	data, err := yaml.Marshal(value)
	if err != nil {
		r.err = fmt.Errorf("could not encode request body as YAML: %w", err)
		return r
	}
	return r.setBody(data, "application/yaml")
}

// MsgPack sets the request body to the MessagePack encoding of the given
// value, with an application/msgpack content type.
func (r *TestRequest) MsgPack(value interface{}) *TestRequest {
	data, err := msgpack.Marshal(value)
	if err != nil {
		r.err = fmt.Errorf("could not encode request body as MessagePack: %w", err)
		return r
	}
	return r.setBody(data, "application/msgpack")
}

// Form sets the request body to the URL encoding of the given values, with
// an application/x-www-form-urlencoded content type.
func (r *TestRequest) Form(values url.Values) *TestRequest {
	return r.setBody([]byte(values.Encode()), "application/x-www-form-urlencoded")
}

// Text sets the request body to the given string, with a text/plain
// content type.
func (r *TestRequest) Text(text string) *TestRequest {
	return r.setBody([]byte(text), "text/plain; charset=utf-8")
}

// Bytes sets the request body to the given raw bytes and content type.
func (r *TestRequest) Bytes(body []byte, contentType string) *TestRequest {
	return r.setBody(body, contentType)
}

// Multipart sets the request body to the encoding of the given multipart
// form, with the matching multipart/form-data boundary content type.
func (r *TestRequest) Multipart(form *MultipartForm) *TestRequest {
	data, contentType, err := form.encode()
	if err != nil {
		r.err = fmt.Errorf("could not encode multipart form: %w", err)
		return r
	}
	return r.setBody(data, contentType)
}

func (r *TestRequest) setBody(body []byte, impliedContentType string) *TestRequest {
	r.body = body
	r.impliedContentType = impliedContentType
	return r
}

// ExpectSuccess makes Expect() require a 2xx status for this request,
// regardless of the harness default.
func (r *TestRequest) ExpectSuccess() *TestRequest {
	state := expectSuccess
	r.expected = &state
	return r
}

// ExpectFailure makes Expect() require a non-2xx status for this request,
// regardless of the harness default.
func (r *TestRequest) ExpectFailure() *TestRequest {
	state := expectFailure
	r.expected = &state
	return r
}

// SaveCookies captures Set-Cookie headers from this request's response into
// the harness jar, regardless of the harness default.
func (r *TestRequest) SaveCookies() *TestRequest {
	save := true
	r.saveCookies = &save
	return r
}

// DoNotSaveCookies leaves the harness jar untouched by this request's
// response, regardless of the harness default.
func (r *TestRequest) DoNotSaveCookies() *TestRequest {
	save := false
	r.saveCookies = &save
	return r
}

// Timeout sets the timeout for this request, overriding the harness
// default. A zero duration disables the timeout.
func (r *TestRequest) Timeout(timeout time.Duration) *TestRequest {
	r.timeout = timeout
	r.timeoutSet = true
	return r
}

// Context attaches a context to this request, for caller-driven
// cancellation beyond the timeout.
func (r *TestRequest) Context(ctx context.Context) *TestRequest {
	r.ctx = ctx
	return r
}

// Send dispatches the request and returns the response. It never fails the
// test itself: any transport or encoding error is returned to the caller,
// and no status expectations are applied. Most tests use Expect instead.
func (r *TestRequest) Send() (*TestResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	defaults, defQuery, defState, defSave, defContentType, defTimeout := r.h.requestDefaults()

	fullURL := r.buildURL(defQuery)

	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := defTimeout
	if r.timeoutSet {
		timeout = r.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader *bytes.Reader
	if r.body != nil {
		bodyReader = bytes.NewReader(r.body)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not construct request for %s %s: %w", r.method, fullURL, err)
	}

	req.Header = r.mergedHeaders(defaults, defContentType)
	for _, c := range r.allCookies() {
		req.AddCookie(c)
	}

	r.h.logger.Printf("> %s %s", r.method, fullURL)
	resp, err := r.h.client.Do(req)
	if err != nil {
		r.h.logger.Printf("! %s %s failed: %s", r.method, fullURL, err)
		return nil, fmt.Errorf("request %s %s failed: %w", r.method, fullURL, err)
	}
	body, err := ioutil.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("could not read response body from %s %s: %w", r.method, fullURL, err)
	}
	r.h.logger.Printf("< %d from %s %s (%d bytes)", resp.StatusCode, r.method, fullURL, len(body))

	save := defSave
	if r.saveCookies != nil {
		save = *r.saveCookies
	}
	if save {
		for _, c := range resp.Cookies() {
			r.h.jar.set(c)
		}
	}

	state := defState
	if r.expected != nil {
		state = *r.expected
	}
	return &TestResponse{
		t:          r.h.t,
		method:     r.method,
		url:        fullURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		body:       body,
		cookies:    resp.Cookies(),
		expected:   state,
	}, nil
}

// Expect dispatches the request and fails the test immediately if it could
// not be sent at all, then applies the request's expected status (set with
// ExpectSuccess/ExpectFailure, or the harness default) to the response.
func (r *TestRequest) Expect() *TestResponse {
	if h, ok := r.h.t.(tHelper); ok {
		h.Helper()
	}
	resp, err := r.Send()
	require.NoError(r.h.t, err, "request could not be sent")

	switch resp.expected {
	case expectSuccess:
		assert.True(r.h.t, resp.isSuccess(),
			"expected a success status for %s %s, got %d", r.method, resp.url, resp.StatusCode)
	case expectFailure:
		assert.False(r.h.t, resp.isSuccess(),
			"expected a failure status for %s %s, got %d", r.method, resp.url, resp.StatusCode)
	}
	return resp
}

// CurlCommand returns a shell-quoted curl command line reproducing this
// request against the harness's current base URL, for pasting into a
// terminal while debugging.
func (r *TestRequest) CurlCommand() string {
	defaults, defQuery, _, _, defContentType, _ := r.h.requestDefaults()

	var b commandBuilder
	b.add("curl", "-X", r.method, r.buildURL(defQuery))
	headers := r.mergedHeaders(defaults, defContentType)
	for _, name := range sortedHeaderNames(headers) {
		for _, value := range headers[name] {
			b.add("-H", fmt.Sprintf("%s: %s", name, value))
		}
	}
	if cookies := r.allCookies(); len(cookies) > 0 {
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		b.add("--cookie", strings.Join(pairs, "; "))
	}
	if r.body != nil {
		b.add("--data-raw", string(r.body))
	}
	return b.String()
}

// buildURL resolves the request path against the harness base URL (unless
// the path is already absolute) and appends default and per-request query
// parameters, in that order.
func (r *TestRequest) buildURL(defQuery []queryParam) string {
	full := r.path
	if !strings.HasPrefix(full, "http://") && !strings.HasPrefix(full, "https://") {
		if !strings.HasPrefix(full, "/") {
			full = "/" + full
		}
		full = r.h.URL() + full
	}

	params := append(append([]queryParam(nil), defQuery...), r.query...)
	if len(params) == 0 {
		return full
	}
	var sb strings.Builder
	sb.WriteString(full)
	separator := "?"
	if strings.Contains(full, "?") {
		separator = "&"
	}
	for _, p := range params {
		sb.WriteString(separator)
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(p.value))
		separator = "&"
	}
	return sb.String()
}

// mergedHeaders combines the harness default headers with this request's
// headers (request values replacing defaults of the same name) and resolves
// the effective Content-Type: an explicit ContentType call wins, then a
// Content-Type header, then the harness default, then the type implied by
// the body encoding.
func (r *TestRequest) mergedHeaders(defaults http.Header, defContentType string) http.Header {
	merged := defaults
	for name, values := range r.headers {
		merged[name] = append([]string(nil), values...)
	}

	contentType := r.explicitContentType
	if contentType == "" {
		contentType = merged.Get("Content-Type")
	}
	if contentType == "" {
		contentType = defContentType
	}
	if contentType == "" {
		contentType = r.impliedContentType
	}
	if contentType != "" {
		merged.Set("Content-Type", contentType)
	}
	return merged
}

func (r *TestRequest) allCookies() []*http.Cookie {
	return append(r.h.jar.all(), r.cookies...)
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedHeaderNames(headers http.Header) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
