package httpharness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func recordingHarness(t *testing.T, opts ...Option) (*TestHarness, <-chan httphelpers.HTTPRequestInfo) {
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(200))
	return New(t, handler, opts...), requests
}

func TestRequestJSONBody(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Post("/items").JSON(map[string]interface{}{"name": "widget", "count": 3}).Expect()

	info := <-requests
	assert.Equal(t, "application/json", info.Request.Header.Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(info.Body, &body))
	assert.Equal(t, map[string]interface{}{"name": "widget", "count": float64(3)}, body)
}

func TestRequestYAMLBody(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Post("/items").YAML(map[string]string{"name": "widget"}).Expect()

	info := <-requests
	assert.Equal(t, "application/yaml", info.Request.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, yaml.Unmarshal(info.Body, &body))
	assert.Equal(t, map[string]string{"name": "widget"}, body)
}

func TestRequestMsgPackBody(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Post("/items").MsgPack(map[string]string{"name": "widget"}).Expect()

	info := <-requests
	assert.Equal(t, "application/msgpack", info.Request.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, msgpack.Unmarshal(info.Body, &body))
	assert.Equal(t, map[string]string{"name": "widget"}, body)
}

func TestRequestFormBody(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Post("/items").Form(url.Values{"name": {"widget"}, "count": {"3"}}).Expect()

	info := <-requests
	assert.Equal(t, "application/x-www-form-urlencoded", info.Request.Header.Get("Content-Type"))
	values, err := url.ParseQuery(string(info.Body))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"name": {"widget"}, "count": {"3"}}, values)
}

func TestRequestTextAndBytesBodies(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Post("/items").Text("hello").Expect()
	info := <-requests
	assert.Equal(t, "text/plain; charset=utf-8", info.Request.Header.Get("Content-Type"))
	assert.Equal(t, "hello", string(info.Body))

	h.Post("/items").Bytes([]byte{1, 2, 3}, "application/octet-stream").Expect()
	info = <-requests
	assert.Equal(t, "application/octet-stream", info.Request.Header.Get("Content-Type"))
	assert.Equal(t, []byte{1, 2, 3}, info.Body)
}

func TestRequestContentTypePrecedence(t *testing.T) {
	t.Run("explicit ContentType beats body-implied", func(t *testing.T) {
		h, requests := recordingHarness(t)
		h.Post("/").JSON(map[string]string{}).ContentType("application/vnd.custom+json").Expect()
		info := <-requests
		assert.Equal(t, "application/vnd.custom+json", info.Request.Header.Get("Content-Type"))
	})

	t.Run("harness default beats body-implied", func(t *testing.T) {
		h, requests := recordingHarness(t, WithDefaultContentType("application/problem+json"))
		h.Post("/").JSON(map[string]string{}).Expect()
		info := <-requests
		assert.Equal(t, "application/problem+json", info.Request.Header.Get("Content-Type"))
	})

	t.Run("explicit beats harness default", func(t *testing.T) {
		h, requests := recordingHarness(t, WithDefaultContentType("application/problem+json"))
		h.Post("/").Text("x").ContentType("text/markdown").Expect()
		info := <-requests
		assert.Equal(t, "text/markdown", info.Request.Header.Get("Content-Type"))
	})

	t.Run("body-implied is used when nothing else is set", func(t *testing.T) {
		h, requests := recordingHarness(t)
		h.Post("/").Text("x").Expect()
		info := <-requests
		assert.Equal(t, "text/plain; charset=utf-8", info.Request.Header.Get("Content-Type"))
	})
}

func TestRequestAuthorizationHelpers(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Get("/").BasicAuth("user", "pass").Expect()
	info := <-requests
	user, pass, ok := info.Request.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)

	h.Get("/").BearerToken("tok123").Expect()
	info = <-requests
	assert.Equal(t, "Bearer tok123", info.Request.Header.Get("Authorization"))
}

func TestRequestQueryParamOrderIsPreserved(t *testing.T) {
	h := New(t, echoHandler())

	h.Get("/").
		QueryParam("b", "2").
		QueryParam("a", "1").
		QueryParam("b", "3").
		Expect().
		AssertJSONContains(map[string]interface{}{"query": "b=2&a=1&b=3"})
}

func TestRequestQueryParamsAreEscaped(t *testing.T) {
	h, requests := recordingHarness(t)

	h.Get("/").QueryParam("q", "a b&c").Expect()
	info := <-requests
	assert.Equal(t, "a b&c", info.Request.URL.Query().Get("q"))
}

func TestRequestClearQueryParams(t *testing.T) {
	h := New(t, echoHandler())

	h.Get("/").QueryParam("a", "1").ClearQueryParams().QueryParam("b", "2").
		Expect().
		AssertJSONContains(map[string]interface{}{"query": "b=2"})
}

func TestRequestAbsoluteURLBypassesBase(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(200))
	other := New(t, handler, WithRealSocket())

	h := New(t, echoHandler(), WithRealSocket())
	resp, err := h.Get(other.URL() + "/elsewhere").Send()
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	info := <-requests
	assert.Equal(t, "/elsewhere", info.Request.URL.Path)
}

func TestRequestSendSurfacesEncodingError(t *testing.T) {
	h := New(t, echoHandler())

	_, err := h.Post("/").JSON(func() {}).Send()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON")
}

func TestRequestSendSurfacesTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(time.Second * 5):
		}
		w.WriteHeader(200)
	})
	h := New(t, slow, WithRealSocket())

	start := time.Now()
	_, err := h.Get("/").Timeout(time.Millisecond * 50).Send()
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second*3)
}

func TestRequestContextCancellation(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
		w.WriteHeader(200)
	})
	h := New(t, slow, WithRealSocket())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 50)
		cancel()
	}()
	_, err := h.Get("/").Timeout(0).Context(ctx).Send()
	require.Error(t, err)
}

func TestRequestExpectFailsTestOnTransportError(t *testing.T) {
	mt := runWithMockT(func(mt *mockT) {
		h := New(mt, echoHandler())
		h.Close()
		h.Get("/").Expect()
	})
	require.Len(t, mt.failures, 1)
	assert.Contains(t, mt.failures[0], "request could not be sent")
}

func TestRequestCurlCommand(t *testing.T) {
	h := New(t, echoHandler())
	h.AddHeader("X-Tenant", "t1")
	h.AddCookie(&http.Cookie{Name: "session", Value: "abc"})

	cmd := h.Post("/items").
		QueryParam("dry-run", "true").
		JSON(map[string]string{"name": "widget"}).
		CurlCommand()

	assert.Contains(t, cmd, "curl -X POST")
	assert.Contains(t, cmd, "/items")
	assert.Contains(t, cmd, "dry-run=true")
	assert.Contains(t, cmd, "X-Tenant: t1")
	assert.Contains(t, cmd, "session=abc")
	assert.Contains(t, cmd, `--data-raw`)
	assert.Contains(t, cmd, "widget")
}
