package expectjson

import (
	"fmt"
	"sort"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type compareMode int

const (
	// exactMode requires objects to have identical key sets.
	exactMode compareMode = iota

	// containsMode ignores actual object keys that the expected document
	// does not mention. Arrays are positional and length-checked in both
	// modes; MatchArrayContains is the only place with unordered-subset
	// array semantics.
	containsMode
)

// MatchExact compares an actual JSON value against an expected one,
// requiring full structural equality: objects must have identical key sets,
// arrays must have the same length with elements compared in order, and
// scalars must have equal values and types. Matchers embedded in the
// expected value are still evaluated in place of literal equality.
//
// Both arguments accept anything toValue accepts: ldvalue.Value, raw JSON
// bytes, Go maps/slices/scalars, or any JSON-marshalable value. The
// comparison is a pure function; it never fails to produce a Result, and it
// walks the whole tree so the Result lists every discrepancy.
func MatchExact(expected, actual interface{}) Result {
	return match(expected, actual, exactMode)
}

// MatchContains compares an actual JSON value against an expected one under
// partial-match semantics: every key in an expected object must be present
// and matching in the actual object, but extra actual keys are ignored.
// Arrays are still compared exactly (same length, in order); use
// MatchArrayContains for subset matching of arrays.
func MatchContains(expected, actual interface{}) Result {
	return match(expected, actual, containsMode)
}

func match(expected, actual interface{}, mode compareMode) Result {
	var result Result
	expectedTree, err := toExpected(expected)
	if err != nil {
		result.addDiscrepancy(rootPath, "invalid expected value: %s", err)
		return result
	}
	actualValue, err := toValue(actual)
	if err != nil {
		result.addDiscrepancy(rootPath, "invalid actual value: %s", err)
		return result
	}
	compareNode(&result, rootPath, expectedTree, actualValue, mode)
	return result
}

// MatchArrayContains requires both values to be arrays, and requires every
// element of the expected array to match at least one element of the actual
// array, using MatchContains rules for each candidate pairing. The actual
// array may contain additional unmatched elements, element order is not
// significant, and an empty expected array succeeds against any actual
// array. Each expected element is checked independently, so duplicate
// expected elements may be satisfied by the same actual element.
func MatchArrayContains(expected, actual interface{}) Result {
	var result Result
	expectedTree, err := toExpected(expected)
	if err != nil {
		result.addDiscrepancy(rootPath, "invalid expected value: %s", err)
		return result
	}
	actualValue, err := toValue(actual)
	if err != nil {
		result.addDiscrepancy(rootPath, "invalid actual value: %s", err)
		return result
	}

	var elements []expectedNode
	switch {
	case expectedTree.kind == arrayNode:
		elements = expectedTree.array
	case expectedTree.kind == literalNode && expectedTree.literal.Type() == ldvalue.ArrayType:
		for i := 0; i < expectedTree.literal.Count(); i++ {
			elements = append(elements, literalChild(expectedTree.literal.GetByIndex(i)))
		}
	default:
		result.addDiscrepancy(rootPath, "expected value must be an array, got %s", expectedTree.describe())
		return result
	}
	if actualValue.Type() != ldvalue.ArrayType {
		result.addDiscrepancy(rootPath, "expected an array, got %s (%s)",
			typeName(actualValue), describeValue(actualValue))
		return result
	}

	for i, element := range elements {
		if !arrayHasMatch(element, actualValue) {
			result.addDiscrepancy(indexPath(rootPath, i),
				"no element in actual array of %d matches %s",
				actualValue.Count(), element.describe())
		}
	}
	return result
}

func arrayHasMatch(expected expectedNode, actualArray ldvalue.Value) bool {
	for i := 0; i < actualArray.Count(); i++ {
		var probe Result
		compareNode(&probe, rootPath, expected, actualArray.GetByIndex(i), containsMode)
		if probe.OK() {
			return true
		}
	}
	return false
}

const rootPath = "$"

func keyPath(path, key string) string {
	return path + "." + key
}

func indexPath(path string, index int) string {
	return fmt.Sprintf("%s[%d]", path, index)
}

func compareNode(result *Result, path string, expected expectedNode, actual ldvalue.Value, mode compareMode) {
	switch expected.kind {
	case matcherNode:
		if err := expected.matcher.Match(actual); err != nil {
			result.addDiscrepancy(path, "expected %s: %s", expected.matcher.Describe(), err)
		}
	case objectNode:
		compareObject(result, path, expected.keys, func(key string) expectedNode {
			return expected.object[key]
		}, actual, mode)
	case arrayNode:
		compareArray(result, path, len(expected.array), func(i int) expectedNode {
			return expected.array[i]
		}, actual, mode)
	default:
		compareLiteral(result, path, expected.literal, actual, mode)
	}
}

func compareLiteral(result *Result, path string, expected, actual ldvalue.Value, mode compareMode) {
	switch expected.Type() {
	case ldvalue.ObjectType:
		keys := expected.Keys()
		sort.Strings(keys)
		compareObject(result, path, keys, func(key string) expectedNode {
			return literalChild(expected.GetByKey(key))
		}, actual, mode)
	case ldvalue.ArrayType:
		compareArray(result, path, expected.Count(), func(i int) expectedNode {
			return literalChild(expected.GetByIndex(i))
		}, actual, mode)
	default:
		if expected.Type() != actual.Type() {
			result.addDiscrepancy(path, "expected %s (%s), got %s (%s)",
				typeName(expected), describeValue(expected), typeName(actual), describeValue(actual))
		} else if !expected.Equal(actual) {
			result.addDiscrepancy(path, "expected %s, got %s",
				describeValue(expected), describeValue(actual))
		}
	}
}

func compareObject(
	result *Result,
	path string,
	keys []string,
	childForKey func(string) expectedNode,
	actual ldvalue.Value,
	mode compareMode,
) {
	if actual.Type() != ldvalue.ObjectType {
		result.addDiscrepancy(path, "expected object, got %s (%s)",
			typeName(actual), describeValue(actual))
		return
	}
	for _, key := range keys {
		actualChild, found := actual.TryGetByKey(key)
		if !found {
			result.addDiscrepancy(keyPath(path, key), "required field is missing (expected %s)",
				childForKey(key).describe())
			continue
		}
		compareNode(result, keyPath(path, key), childForKey(key), actualChild, mode)
	}
	if mode == exactMode {
		expectedKeys := make(map[string]bool, len(keys))
		for _, key := range keys {
			expectedKeys[key] = true
		}
		actualKeys := actual.Keys()
		sort.Strings(actualKeys)
		for _, key := range actualKeys {
			if !expectedKeys[key] {
				result.addDiscrepancy(keyPath(path, key), "unexpected field with value %s",
					describeValue(actual.GetByKey(key)))
			}
		}
	}
}

func compareArray(
	result *Result,
	path string,
	expectedLen int,
	childAt func(int) expectedNode,
	actual ldvalue.Value,
	mode compareMode,
) {
	if actual.Type() != ldvalue.ArrayType {
		result.addDiscrepancy(path, "expected array, got %s (%s)",
			typeName(actual), describeValue(actual))
		return
	}
	if actual.Count() != expectedLen {
		result.addDiscrepancy(path, "expected array of %d elements, got %d",
			expectedLen, actual.Count())
	}
	// Elements within the common prefix are still compared on a length
	// mismatch, so the report names every divergent element as well.
	n := expectedLen
	if actual.Count() < n {
		n = actual.Count()
	}
	for i := 0; i < n; i++ {
		compareNode(result, indexPath(path, i), childAt(i), actual.GetByIndex(i), mode)
	}
}
