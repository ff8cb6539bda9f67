package httpharness

import (
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/require"
)

// TestingT is the subset of testing.T that a harness needs in order to
// report failures. It is satisfied by *testing.T. If the value also
// implements Cleanup (as *testing.T does), the harness registers its own
// Close there so that tests do not have to.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

type tHelper interface {
	Helper()
}

type tCleanup interface {
	Cleanup(func())
}

type queryParam struct {
	key   string
	value string
}

// TestHarness owns one running instance of a service under test and issues
// HTTP requests against it. By default requests are dispatched in-process
// through a mock transport; with WithRealSocket the service is bound to a
// real localhost socket instead.
//
// The harness carries per-instance defaults (headers, query parameters,
// cookie jar, expected status) that are applied to every request it
// creates. All of that state is independent between harnesses, so any
// number of harnesses can be used concurrently, one per parallel test.
type TestHarness struct {
	t                  TestingT
	transport          transport
	client             *http.Client
	logger             Logger
	jar                *cookieJar
	lock               sync.Mutex
	defaultHeaders     http.Header
	defaultQuery       []queryParam
	saveCookies        bool
	expectedState      expectedState
	defaultContentType string
	requestTimeout     time.Duration
	closing            sync.Once
}

// New creates a TestHarness serving the given handler and fails the test if
// the harness cannot be started. The handler is any http.Handler; the
// harness imposes no routing or middleware model of its own.
func New(t TestingT, service http.Handler, opts ...Option) *TestHarness {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.NotNil(t, service, "harness requires a non-nil service handler")

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var tr transport
	if cfg.realSocket {
		realTr, err := newHTTPTransport(service, cfg.listenHost)
		require.NoError(t, err, "could not start the harness HTTP listener")
		tr = realTr
	} else {
		tr = newMockTransport(service)
	}

	client := cfg.httpClient
	if client == nil {
		client = &http.Client{}
	}
	if rt := tr.RoundTripper(); rt != nil {
		client = &http.Client{Transport: rt}
	}

	h := &TestHarness{
		t:                  t,
		transport:          tr,
		client:             client,
		logger:             cfg.logger,
		jar:                newCookieJar(),
		defaultHeaders:     make(http.Header),
		saveCookies:        cfg.saveCookies,
		expectedState:      cfg.expectedState,
		defaultContentType: cfg.defaultContentType,
		requestTimeout:     cfg.requestTimeout,
	}
	h.logger.Printf("harness started at %s", tr.BaseURL())

	if c, ok := t.(tCleanup); ok {
		c.Cleanup(h.Close)
	}
	return h
}

// URL returns the base URL of the service under test, without a trailing
// slash: "http://127.0.0.1:PORT" for a real-socket harness, or a fixed
// non-routable host for a mock-transport harness.
func (h *TestHarness) URL() string {
	return h.transport.BaseURL()
}

// Close stops the harness. For a real-socket harness this shuts down the
// listener; requests sent afterwards fail. Close is idempotent, and is
// called automatically at the end of the test when the harness was created
// with a *testing.T.
func (h *TestHarness) Close() {
	h.closing.Do(func() {
		if err := h.transport.Close(); err != nil {
			h.logger.Printf("error shutting down harness: %s", err)
		}
		h.logger.Printf("harness at %s closed", h.transport.BaseURL())
	})
}

// Method starts building a request with an arbitrary HTTP method. The path
// is resolved against the harness base URL unless it is already an absolute
// http or https URL.
func (h *TestHarness) Method(method, path string) *TestRequest {
	return newTestRequest(h, method, path)
}

func (h *TestHarness) Get(path string) *TestRequest    { return h.Method(http.MethodGet, path) }
func (h *TestHarness) Post(path string) *TestRequest   { return h.Method(http.MethodPost, path) }
func (h *TestHarness) Put(path string) *TestRequest    { return h.Method(http.MethodPut, path) }
func (h *TestHarness) Patch(path string) *TestRequest  { return h.Method(http.MethodPatch, path) }
func (h *TestHarness) Delete(path string) *TestRequest { return h.Method(http.MethodDelete, path) }
func (h *TestHarness) Head(path string) *TestRequest   { return h.Method(http.MethodHead, path) }

// AddHeader adds a default header sent with every subsequent request from
// this harness. Headers set on an individual request take precedence.
func (h *TestHarness) AddHeader(name, value string) *TestHarness {
	h.lock.Lock()
	h.defaultHeaders.Add(name, value)
	h.lock.Unlock()
	return h
}

// ClearHeaders removes all harness-wide default headers.
func (h *TestHarness) ClearHeaders() *TestHarness {
	h.lock.Lock()
	h.defaultHeaders = make(http.Header)
	h.lock.Unlock()
	return h
}

// AddQueryParam adds a default query parameter appended to the URL of every
// subsequent request, before any per-request parameters.
func (h *TestHarness) AddQueryParam(key, value string) *TestHarness {
	h.lock.Lock()
	h.defaultQuery = append(h.defaultQuery, queryParam{key: key, value: value})
	h.lock.Unlock()
	return h
}

// AddQueryParams adds one default query parameter per value in the given
// set, in sorted key order.
func (h *TestHarness) AddQueryParams(params map[string]string) *TestHarness {
	for _, key := range sortedKeys(params) {
		h.AddQueryParam(key, params[key])
	}
	return h
}

// ClearQueryParams removes all harness-wide default query parameters.
func (h *TestHarness) ClearQueryParams() *TestHarness {
	h.lock.Lock()
	h.defaultQuery = nil
	h.lock.Unlock()
	return h
}

// AddCookie places a cookie in the harness jar, to be sent with every
// subsequent request. It is always stored, regardless of whether saving of
// response cookies is enabled.
func (h *TestHarness) AddCookie(c *http.Cookie) *TestHarness {
	h.jar.set(c)
	return h
}

// Cookie returns the jar's current cookie with the given name, or nil.
func (h *TestHarness) Cookie(name string) *http.Cookie {
	return h.jar.get(name)
}

// Cookies returns a copy of the jar's current cookies in replay order.
func (h *TestHarness) Cookies() []*http.Cookie {
	return h.jar.all()
}

// ClearCookies empties the harness cookie jar.
func (h *TestHarness) ClearCookies() *TestHarness {
	h.jar.clear()
	return h
}

// SaveCookies enables capturing Set-Cookie headers from responses into the
// jar for all subsequent requests.
func (h *TestHarness) SaveCookies() *TestHarness {
	h.lock.Lock()
	h.saveCookies = true
	h.lock.Unlock()
	return h
}

// DoNotSaveCookies disables capturing Set-Cookie headers from responses.
// Cookies already in the jar are still sent.
func (h *TestHarness) DoNotSaveCookies() *TestHarness {
	h.lock.Lock()
	h.saveCookies = false
	h.lock.Unlock()
	return h
}

// ExpectSuccess makes Expect() require a 2xx status by default on all
// subsequent requests from this harness.
func (h *TestHarness) ExpectSuccess() *TestHarness {
	h.lock.Lock()
	h.expectedState = expectSuccess
	h.lock.Unlock()
	return h
}

// ExpectFailure makes Expect() require a non-2xx status by default on all
// subsequent requests from this harness.
func (h *TestHarness) ExpectFailure() *TestHarness {
	h.lock.Lock()
	h.expectedState = expectFailure
	h.lock.Unlock()
	return h
}

// requestDefaults takes a consistent snapshot of the harness-wide settings
// that apply to one outgoing request.
func (h *TestHarness) requestDefaults() (http.Header, []queryParam, expectedState, bool, string, time.Duration) {
	h.lock.Lock()
	defer h.lock.Unlock()
	headers := make(http.Header, len(h.defaultHeaders))
	for name, values := range h.defaultHeaders {
		headers[name] = append([]string(nil), values...)
	}
	query := append([]queryParam(nil), h.defaultQuery...)
	return headers, query, h.expectedState, h.saveCookies, h.defaultContentType, h.requestTimeout
}
