package expectjson

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type expectedKind int

const (
	literalNode expectedKind = iota
	matcherNode
	objectNode
	arrayNode
)

// expectedNode is one node of an expected document. It is either a literal
// JSON subtree (which may itself be an object or array), a Matcher, or a
// container built from a Go map or slice whose children may in turn be
// matchers. Containers are kept as explicit nodes so that a Matcher placed
// anywhere inside a nested map or slice is honored during comparison.
type expectedNode struct {
	kind    expectedKind
	literal ldvalue.Value
	matcher Matcher
	keys    []string
	object  map[string]expectedNode
	array   []expectedNode
}

// toExpected normalizes an expected input into an expectedNode tree.
func toExpected(input interface{}) (expectedNode, error) {
	switch v := input.(type) {
	case nil:
		return expectedNode{kind: literalNode, literal: ldvalue.Null()}, nil
	case Matcher:
		return expectedNode{kind: matcherNode, matcher: v}, nil
	case ldvalue.Value:
		return expectedNode{kind: literalNode, literal: v}, nil
	case json.RawMessage:
		return parseExpectedJSON([]byte(v))
	case []byte:
		return parseExpectedJSON(v)
	}

	rv := reflect.ValueOf(input)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		node := expectedNode{kind: objectNode, object: make(map[string]expectedNode, rv.Len())}
		for _, key := range rv.MapKeys() {
			child, err := toExpected(rv.MapIndex(key).Interface())
			if err != nil {
				return expectedNode{}, err
			}
			node.object[key.String()] = child
			node.keys = append(node.keys, key.String())
		}
		sort.Strings(node.keys)
		return node, nil
	case reflect.Slice, reflect.Array:
		node := expectedNode{kind: arrayNode, array: make([]expectedNode, 0, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			child, err := toExpected(rv.Index(i).Interface())
			if err != nil {
				return expectedNode{}, err
			}
			node.array = append(node.array, child)
		}
		return node, nil
	}

	value, err := toValue(input)
	if err != nil {
		return expectedNode{}, err
	}
	return expectedNode{kind: literalNode, literal: value}, nil
}

func parseExpectedJSON(data []byte) (expectedNode, error) {
	value, err := parseJSON(data)
	if err != nil {
		return expectedNode{}, err
	}
	return expectedNode{kind: literalNode, literal: value}, nil
}

func literalChild(v ldvalue.Value) expectedNode {
	return expectedNode{kind: literalNode, literal: v}
}

// describe renders the expected node for discrepancy messages, with matcher
// descriptions shown in place of literal values.
func (e expectedNode) describe() string {
	switch e.kind {
	case matcherNode:
		return "<" + e.matcher.Describe() + ">"
	case objectNode:
		parts := make([]string, 0, len(e.keys))
		for _, key := range e.keys {
			parts = append(parts, fmt.Sprintf("%q:%s", key, e.object[key].describe()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case arrayNode:
		parts := make([]string, 0, len(e.array))
		for _, child := range e.array {
			parts = append(parts, child.describe())
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return describeValue(e.literal)
	}
}
