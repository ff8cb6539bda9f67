package httpharness

import (
	"net/http"
	"time"
)

const defaultRequestTimeout = time.Second * 10

// expectedState is the status expectation applied by Expect() when the test
// has not made a per-request choice.
type expectedState int

const (
	expectNothing expectedState = iota
	expectSuccess
	expectFailure
)

type config struct {
	realSocket         bool
	listenHost         string
	saveCookies        bool
	expectedState      expectedState
	defaultContentType string
	requestTimeout     time.Duration
	logger             Logger
	httpClient         *http.Client
}

func defaultConfig() config {
	return config{
		listenHost:     "127.0.0.1",
		saveCookies:    true,
		requestTimeout: defaultRequestTimeout,
		logger:         NullLogger(),
	}
}

// Option customizes the behavior of a harness created with New. See the
// With* functions for the available options.
type Option func(*config)

// WithRealSocket makes the harness bind the service to a real localhost
// socket on a random port and issue requests over actual HTTP, instead of
// the default in-process mock transport. Required for WebSocket tests.
func WithRealSocket() Option {
	return func(c *config) {
		c.realSocket = true
	}
}

// WithMockTransport makes the harness dispatch requests directly into the
// service handler in-process, with no socket. This is the default.
func WithMockTransport() Option {
	return func(c *config) {
		c.realSocket = false
	}
}

// WithListenAddr sets the host address a real-socket harness binds to. The
// default is 127.0.0.1. It has no effect on a mock-transport harness.
func WithListenAddr(host string) Option {
	return func(c *config) {
		c.listenHost = host
	}
}

// WithSaveCookies controls whether the harness captures Set-Cookie headers
// from responses into its cookie jar and replays them on later requests.
// Saving is on by default; individual requests can override either way.
func WithSaveCookies(save bool) Option {
	return func(c *config) {
		c.saveCookies = save
	}
}

// WithExpectSuccessByDefault makes Expect() require a 2xx status on every
// request that does not call ExpectSuccess or ExpectFailure itself.
func WithExpectSuccessByDefault() Option {
	return func(c *config) {
		c.expectedState = expectSuccess
	}
}

// WithDefaultContentType sets a Content-Type applied to requests whose body
// encoding does not imply one and that do not set one explicitly.
func WithDefaultContentType(contentType string) Option {
	return func(c *config) {
		c.defaultContentType = contentType
	}
}

// WithRequestTimeout sets the default timeout applied to every request and
// WebSocket operation from the harness. Individual requests can override it.
// A zero duration disables the default timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.requestTimeout = timeout
	}
}

// WithDebugLogger directs a description of every request and response
// through the given Logger.
func WithDebugLogger(logger Logger) Option {
	return func(c *config) {
		if logger == nil {
			logger = NullLogger()
		}
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client a real-socket harness uses to issue
// requests. It has no effect on a mock-transport harness, whose requests
// never leave the process.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}
