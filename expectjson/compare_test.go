package expectjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func requireOK(t *testing.T, result Result) {
	t.Helper()
	require.True(t, result.OK(), "expected a successful match, got: %s", result)
}

func requireDiscrepancies(t *testing.T, result Result, count int) []Discrepancy {
	t.Helper()
	require.Len(t, result.Discrepancies, count, "unexpected discrepancy list: %s", result)
	return result.Discrepancies
}

func TestMatchExactIdenticalDocuments(t *testing.T) {
	doc := json.RawMessage(`{"name":"Alice","age":30,"tags":["a","b"],"meta":{"active":true,"score":1.5},"gone":null}`)
	requireOK(t, MatchExact(doc, doc))
}

func TestMatchExactScalarValueMismatch(t *testing.T) {
	ds := requireDiscrepancies(t, MatchExact(
		json.RawMessage(`{"name":"Alice"}`),
		json.RawMessage(`{"name":"Bob"}`),
	), 1)
	assert.Equal(t, "$.name", ds[0].Path)
}

func TestMatchExactTypeMismatchNamesBothTypes(t *testing.T) {
	ds := requireDiscrepancies(t, MatchExact(
		json.RawMessage(`{"age":30}`),
		json.RawMessage(`{"age":"30"}`),
	), 1)
	assert.Equal(t, "$.age", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "number")
	assert.Contains(t, ds[0].Reason, "string")
}

func TestMatchExactRejectsExtraActualKeys(t *testing.T) {
	ds := requireDiscrepancies(t, MatchExact(
		json.RawMessage(`{"name":"Alice"}`),
		json.RawMessage(`{"name":"Alice","role":"admin"}`),
	), 1)
	assert.Equal(t, "$.role", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "unexpected field")
}

func TestMatchExactArrayOrderSensitive(t *testing.T) {
	requireOK(t, MatchExact(json.RawMessage(`[1,2,3]`), json.RawMessage(`[1,2,3]`)))

	ds := requireDiscrepancies(t, MatchExact(json.RawMessage(`[1,2,3]`), json.RawMessage(`[1,3,2]`)), 2)
	assert.Equal(t, "$[1]", ds[0].Path)
	assert.Equal(t, "$[2]", ds[1].Path)
}

func TestMatchExactArrayLengthMismatch(t *testing.T) {
	ds := requireDiscrepancies(t, MatchExact(json.RawMessage(`[1,2,3]`), json.RawMessage(`[1,2]`)), 1)
	assert.Equal(t, "$", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "3")
	assert.Contains(t, ds[0].Reason, "2")
}

func TestMatchExactAggregatesAllDiscrepancies(t *testing.T) {
	result := MatchExact(
		json.RawMessage(`{"a":1,"b":"x","c":[true]}`),
		json.RawMessage(`{"a":2,"b":"y","c":[false]}`),
	)
	ds := requireDiscrepancies(t, result, 3)
	assert.Equal(t, "$.a", ds[0].Path)
	assert.Equal(t, "$.b", ds[1].Path)
	assert.Equal(t, "$.c[0]", ds[2].Path)
}

func TestMatchContainsIgnoresExtraActualKeys(t *testing.T) {
	requireOK(t, MatchContains(
		json.RawMessage(`{"name":"Alice"}`),
		json.RawMessage(`{"name":"Alice","role":"admin"}`),
	))
}

func TestMatchContainsIgnoresExtraKeysInNestedObjects(t *testing.T) {
	requireOK(t, MatchContains(
		json.RawMessage(`{"user":{"name":"Alice"}}`),
		json.RawMessage(`{"user":{"name":"Alice","role":"admin"},"count":2}`),
	))
}

func TestMatchContainsReportsMissingField(t *testing.T) {
	ds := requireDiscrepancies(t, MatchContains(
		json.RawMessage(`{"name":"Bob","age":30}`),
		json.RawMessage(`{"name":"Bob"}`),
	), 1)
	assert.Equal(t, "$.age", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "missing")
}

func TestMatchContainsArraysRemainExact(t *testing.T) {
	// Partial matching applies to object keys only; an array inside a
	// MatchContains comparison still requires equal length and order.
	ds := requireDiscrepancies(t, MatchContains(
		json.RawMessage(`{"tags":["a"]}`),
		json.RawMessage(`{"tags":["a","b"]}`),
	), 1)
	assert.Equal(t, "$.tags", ds[0].Path)
}

func TestMatchContainsTypeMismatchAtRoot(t *testing.T) {
	ds := requireDiscrepancies(t, MatchContains(
		json.RawMessage(`{"name":"Alice"}`),
		json.RawMessage(`["Alice"]`),
	), 1)
	assert.Equal(t, "$", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "object")
}

func TestMatchWithGoValuesAndMatchersNested(t *testing.T) {
	actual := json.RawMessage(`{"id":"4ba1d2d4-b4e9-4d3c-a5f9-2f9a62cfd6db","items":[{"n":3}],"mode":"fast"}`)
	requireOK(t, MatchContains(map[string]interface{}{
		"id": UUIDString(),
		"items": []interface{}{
			map[string]interface{}{"n": IntBetween(1, 5)},
		},
		"mode": "fast",
	}, actual))
}

func TestMatchWithStructExpectedValue(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	requireOK(t, MatchExact(point{X: 1, Y: 2}, json.RawMessage(`{"x":1,"y":2}`)))
}

func TestMatchExactRejectsUnrepresentableExpectedValue(t *testing.T) {
	ds := requireDiscrepancies(t, MatchExact(func() {}, json.RawMessage(`{}`)), 1)
	assert.Equal(t, "$", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "invalid expected value")
}

func TestMatchArrayContainsVacuousTruth(t *testing.T) {
	requireOK(t, MatchArrayContains(json.RawMessage(`[]`), json.RawMessage(`[1,2]`)))
	requireOK(t, MatchArrayContains(json.RawMessage(`[]`), json.RawMessage(`[]`)))
}

func TestMatchArrayContainsWithPartialObjects(t *testing.T) {
	actual := json.RawMessage(`[{"name":"Alice","role":"admin"},{"name":"Bob"}]`)
	requireOK(t, MatchArrayContains(json.RawMessage(`[{"name":"Alice"}]`), actual))
}

func TestMatchArrayContainsOrderInsensitive(t *testing.T) {
	requireOK(t, MatchArrayContains(json.RawMessage(`[3,1]`), json.RawMessage(`[1,2,3]`)))
}

func TestMatchArrayContainsNoMatchingElement(t *testing.T) {
	actual := json.RawMessage(`[{"name":"Alice","role":"admin"},{"name":"Bob"}]`)
	ds := requireDiscrepancies(t, MatchArrayContains(json.RawMessage(`[{"name":"Carol"}]`), actual), 1)
	assert.Equal(t, "$[0]", ds[0].Path)
	assert.Contains(t, ds[0].Reason, "no element")
}

func TestMatchArrayContainsWithMatcherElements(t *testing.T) {
	actual := json.RawMessage(`["x","4ba1d2d4-b4e9-4d3c-a5f9-2f9a62cfd6db"]`)
	requireOK(t, MatchArrayContains([]interface{}{UUIDString()}, actual))

	ds := requireDiscrepancies(t, MatchArrayContains([]interface{}{IntBetween(1, 5)}, actual), 1)
	assert.Equal(t, "$[0]", ds[0].Path)
}

func TestMatchArrayContainsRequiresArrays(t *testing.T) {
	ds := requireDiscrepancies(t, MatchArrayContains(json.RawMessage(`[]`), json.RawMessage(`{"a":1}`)), 1)
	assert.Equal(t, "$", ds[0].Path)

	ds = requireDiscrepancies(t, MatchArrayContains(json.RawMessage(`{"a":1}`), json.RawMessage(`[]`)), 1)
	assert.Equal(t, "$", ds[0].Path)
}

func TestMatchIsIdempotent(t *testing.T) {
	expected := map[string]interface{}{"name": "Bob", "age": IntBetween(100, 200)}
	actual := json.RawMessage(`{"name":"Bob","age":30}`)
	first := MatchContains(expected, actual)
	second := MatchContains(expected, actual)
	assert.Equal(t, first, second)
}

func TestMatchAcceptsLDValueInputs(t *testing.T) {
	expected := ldvalue.ObjectBuild().Set("name", ldvalue.String("Alice")).Build()
	actual := ldvalue.ObjectBuild().
		Set("name", ldvalue.String("Alice")).
		Set("role", ldvalue.String("admin")).
		Build()
	requireOK(t, MatchContains(expected, actual))
	requireDiscrepancies(t, MatchExact(expected, actual), 1)
}

func TestNumericEqualityAcrossIntAndFloatForms(t *testing.T) {
	requireOK(t, MatchExact(map[string]interface{}{"n": 2}, json.RawMessage(`{"n":2.0}`)))
}

func TestResultStringListsEveryDiscrepancy(t *testing.T) {
	result := MatchExact(
		json.RawMessage(`{"a":1,"b":2}`),
		json.RawMessage(`{"a":9,"b":9}`),
	)
	report := result.String()
	assert.Contains(t, report, "found 2 discrepancies")
	assert.Contains(t, report, "$.a")
	assert.Contains(t, report, "$.b")

	assert.Equal(t, "", Result{}.String())
}
