package httpharness

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

// TestWebSocket is an open WebSocket connection to the service under test.
// Every operation uses the harness request timeout as its deadline and
// fails the test on error; tests that need to exercise error paths directly
// should use a plain websocket client instead.
type TestWebSocket struct {
	t       TestingT
	conn    *websocket.Conn
	timeout time.Duration
}

// WebSocket opens a WebSocket connection to the given path on the service
// under test, sending the harness default headers and the current cookie
// jar with the handshake request. It requires a real-socket harness; a
// mock-transport harness has no socket to dial, so the test fails with an
// explanation.
func (h *TestHarness) WebSocket(path string) *TestWebSocket {
	if helper, ok := h.t.(tHelper); ok {
		helper.Helper()
	}
	if _, ok := h.transport.(*httpTransport); !ok {
		require.FailNow(h.t,
			"WebSocket requires a harness created with WithRealSocket; the mock transport has no socket to dial")
	}

	headers, _, _, _, _, timeout := h.requestDefaults()
	header := make(http.Header, len(headers))
	for name, values := range headers {
		header[name] = append([]string(nil), values...)
	}
	if cookies := h.jar.all(); len(cookies) > 0 {
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		header.Set("Cookie", strings.Join(pairs, "; "))
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	wsURL := "ws://" + strings.TrimPrefix(h.URL(), "http://") + path

	ctx, cancel := h.operationContext(timeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(h.t, err, "could not open WebSocket connection to %s", wsURL)
	h.logger.Printf("ws open %s", wsURL)

	return &TestWebSocket{t: h.t, conn: conn, timeout: timeout}
}

func (h *TestHarness) operationContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (ws *TestWebSocket) operationContext() (context.Context, context.CancelFunc) {
	if ws.timeout > 0 {
		return context.WithTimeout(context.Background(), ws.timeout)
	}
	return context.WithCancel(context.Background())
}

// SendText sends a text message.
func (ws *TestWebSocket) SendText(text string) {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	require.NoError(ws.t, ws.conn.Write(ctx, websocket.MessageText, []byte(text)),
		"could not send WebSocket text message")
}

// SendJSON sends the JSON encoding of the given value as a text message.
func (ws *TestWebSocket) SendJSON(value interface{}) {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	require.NoError(ws.t, wsjson.Write(ctx, ws.conn, value),
		"could not send WebSocket JSON message")
}

// SendBinary sends a binary message.
func (ws *TestWebSocket) SendBinary(data []byte) {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	require.NoError(ws.t, ws.conn.Write(ctx, websocket.MessageBinary, data),
		"could not send WebSocket binary message")
}

// ReceiveText reads the next message and returns it as a string, failing
// the test if it is not a text message.
func (ws *TestWebSocket) ReceiveText() string {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	kind, data, err := ws.conn.Read(ctx)
	require.NoError(ws.t, err, "could not read WebSocket message")
	require.Equal(ws.t, websocket.MessageText, kind, "expected a text message")
	return string(data)
}

// ReceiveJSON reads the next message and decodes it as JSON into the given
// value.
func (ws *TestWebSocket) ReceiveJSON(out interface{}) {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	require.NoError(ws.t, wsjson.Read(ctx, ws.conn, out),
		"could not read WebSocket JSON message")
}

// ReceiveBinary reads the next message and returns its bytes, failing the
// test if it is not a binary message.
func (ws *TestWebSocket) ReceiveBinary() []byte {
	if h, ok := ws.t.(tHelper); ok {
		h.Helper()
	}
	ctx, cancel := ws.operationContext()
	defer cancel()
	kind, data, err := ws.conn.Read(ctx)
	require.NoError(ws.t, err, "could not read WebSocket message")
	require.Equal(ws.t, websocket.MessageBinary, kind, "expected a binary message")
	return data
}

// Close performs a normal closure of the connection. It is safe to call
// after the peer has already closed.
func (ws *TestWebSocket) Close() {
	_ = ws.conn.Close(websocket.StatusNormalClosure, "test finished")
}
