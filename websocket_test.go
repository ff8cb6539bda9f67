package httpharness

import (
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsEchoHandler accepts a WebSocket connection and echoes every message
// back with the same type, until the peer closes.
func wsEchoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			t.Logf("websocket accept failed: %s", err)
			return
		}
		defer conn.CloseNow()
		for {
			kind, data, err := conn.Read(req.Context())
			if err != nil {
				return
			}
			if err := conn.Write(req.Context(), kind, data); err != nil {
				return
			}
		}
	})
}

func TestWebSocketEchoText(t *testing.T) {
	h := New(t, wsEchoHandler(t), WithRealSocket())

	ws := h.WebSocket("/ws")
	defer ws.Close()

	ws.SendText("hello")
	assert.Equal(t, "hello", ws.ReceiveText())
}

func TestWebSocketEchoJSON(t *testing.T) {
	h := New(t, wsEchoHandler(t), WithRealSocket())

	ws := h.WebSocket("/ws")
	defer ws.Close()

	ws.SendJSON(map[string]interface{}{"kind": "ping", "seq": 1})
	var received map[string]interface{}
	ws.ReceiveJSON(&received)
	assert.Equal(t, "ping", received["kind"])
	assert.Equal(t, float64(1), received["seq"])
}

func TestWebSocketEchoBinary(t *testing.T) {
	h := New(t, wsEchoHandler(t), WithRealSocket())

	ws := h.WebSocket("/ws")
	defer ws.Close()

	ws.SendBinary([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, ws.ReceiveBinary())
}

func TestWebSocketHandshakeCarriesDefaultsAndCookies(t *testing.T) {
	type handshakeInfo struct {
		header string
		cookie string
	}
	handshakes := make(chan handshakeInfo, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		info := handshakeInfo{header: req.Header.Get("X-Test-Run")}
		if c, err := req.Cookie("session"); err == nil {
			info.cookie = c.Value
		}
		handshakes <- info
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			return
		}
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	})
	h := New(t, handler, WithRealSocket())
	h.AddHeader("X-Test-Run", "abc")
	h.AddCookie(&http.Cookie{Name: "session", Value: "s1"})

	ws := h.WebSocket("/ws")
	ws.Close()

	select {
	case info := <-handshakes:
		assert.Equal(t, "abc", info.header)
		assert.Equal(t, "s1", info.cookie)
	case <-time.After(time.Second):
		require.Fail(t, "timed out waiting for the handshake request")
	}
}

func TestWebSocketRequiresRealSocket(t *testing.T) {
	mt := runWithMockT(func(mt *mockT) {
		h := New(mt, wsEchoHandler(t))
		h.WebSocket("/ws")
	})
	require.Len(t, mt.failures, 1)
	assert.Contains(t, mt.failures[0], "WithRealSocket")
}
