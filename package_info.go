// Package httpharness is a test harness for HTTP services: it runs a
// service in-process (or on a real localhost socket), issues requests
// against it, and asserts on the decoded responses.
//
// The general model is:
//
// 1. A test creates a TestHarness around any http.Handler. By default
// requests are handed straight to the handler through an in-process mock
// transport; with WithRealSocket the handler is served on a random
// localhost port and requests travel over actual HTTP, which also enables
// WebSocket tests.
//
// 2. Requests are built fluently (headers, query parameters, cookies, and
// JSON/YAML/MessagePack/form/multipart bodies) and dispatched with Send,
// which returns transport errors to the caller, or Expect, which fails the
// test on them.
//
// 3. Responses decode their bodies into typed values and carry assertion
// helpers, including structural JSON assertions with partial matching and
// placeholder matchers from the expectjson subpackage.
//
// 4. Each harness keeps a cookie jar: cookies set by responses are replayed
// on later requests from the same harness until cleared. Harness instances
// share no state, so parallel tests can each run their own.
package httpharness
