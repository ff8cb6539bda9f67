package httpharness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

const shutdownTimeout = time.Second * 10

// transport abstracts how a harness delivers requests to the service under
// test: either directly in-process, or over a real localhost socket.
type transport interface {
	RoundTripper() http.RoundTripper
	BaseURL() string
	Close() error
}

var errHarnessClosed = errors.New("harness has been closed")

// mockBaseURL is the fixed base URL reported by a mock-transport harness.
// The host is never resolved; requests are handed straight to the handler.
const mockBaseURL = "http://harness.local"

// mockTransport is an http.RoundTripper that dispatches each request
// directly into the service handler's ServeHTTP, recording the response
// in-process. No socket is bound and no real I/O occurs; the request
// context is passed through to the handler unchanged.
type mockTransport struct {
	handler http.Handler
	lock    sync.Mutex
	closed  bool
}

func newMockTransport(handler http.Handler) *mockTransport {
	return &mockTransport{handler: handler}
}

func (m *mockTransport) RoundTripper() http.RoundTripper { return m }

func (m *mockTransport) BaseURL() string { return mockBaseURL }

func (m *mockTransport) Close() error {
	m.lock.Lock()
	m.closed = true
	m.lock.Unlock()
	return nil
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.lock.Lock()
	closed := m.closed
	m.lock.Unlock()
	if closed {
		return nil, errHarnessClosed
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	recorder := httptest.NewRecorder()
	m.handler.ServeHTTP(recorder, req)

	resp := recorder.Result()
	resp.Request = req
	return resp, nil
}

// httpTransport serves the handler on a real localhost listener bound to a
// random port, so requests travel through the full net/http client and
// server stacks.
type httpTransport struct {
	server   *http.Server
	listener net.Listener
	baseURL  string
	closing  sync.Once
	closeErr error
}

func newHTTPTransport(handler http.Handler, host string) (*httpTransport, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("could not bind a listener on %s: %w", host, err)
	}

	t := &httpTransport{
		server:   &http.Server{Handler: handler},
		listener: listener,
		baseURL:  "http://" + listener.Addr().String(),
	}

	// The listener is already accepting connections once net.Listen
	// returns; Serve only needs to be draining them before the first
	// request's response is read, so no readiness polling is required.
	go func() {
		_ = t.server.Serve(listener)
	}()

	return t, nil
}

func (t *httpTransport) RoundTripper() http.RoundTripper { return nil }

func (t *httpTransport) BaseURL() string { return t.baseURL }

func (t *httpTransport) Close() error {
	t.closing.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		t.closeErr = t.server.Shutdown(ctx)
	})
	return t.closeErr
}
