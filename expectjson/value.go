package expectjson

import (
	"encoding/json"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// toValue normalizes an actual (matcher-free) input into an ldvalue.Value
// tree. Byte slices and json.RawMessage are treated as encoded JSON; any
// other Go value takes a marshal-then-parse round trip so that structs,
// typed maps, and typed slices all end up in the same JSON shape a decoded
// response body would have.
func toValue(input interface{}) (ldvalue.Value, error) {
	switch v := input.(type) {
	case nil:
		return ldvalue.Null(), nil
	case ldvalue.Value:
		return v, nil
	case json.RawMessage:
		return parseJSON([]byte(v))
	case []byte:
		return parseJSON(v)
	case bool:
		return ldvalue.Bool(v), nil
	case int:
		return ldvalue.Int(v), nil
	case int8:
		return ldvalue.Int(int(v)), nil
	case int16:
		return ldvalue.Int(int(v)), nil
	case int32:
		return ldvalue.Int(int(v)), nil
	case int64:
		return ldvalue.Float64(float64(v)), nil
	case uint:
		return ldvalue.Float64(float64(v)), nil
	case uint8:
		return ldvalue.Int(int(v)), nil
	case uint16:
		return ldvalue.Int(int(v)), nil
	case uint32:
		return ldvalue.Float64(float64(v)), nil
	case uint64:
		return ldvalue.Float64(float64(v)), nil
	case float32:
		return ldvalue.Float64(float64(v)), nil
	case float64:
		return ldvalue.Float64(v), nil
	case string:
		return ldvalue.String(v), nil
	default:
		data, err := json.Marshal(input)
		if err != nil {
			return ldvalue.Null(), fmt.Errorf("value of type %T cannot be represented as JSON: %w", input, err)
		}
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (ldvalue.Value, error) {
	var v ldvalue.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return ldvalue.Null(), fmt.Errorf("malformed JSON: %w", err)
	}
	return v, nil
}

// typeName returns the JSON type vocabulary used in discrepancy messages.
func typeName(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.NullType:
		return "null"
	case ldvalue.BoolType:
		return "boolean"
	case ldvalue.NumberType:
		return "number"
	case ldvalue.StringType:
		return "string"
	case ldvalue.ArrayType:
		return "array"
	case ldvalue.ObjectType:
		return "object"
	default:
		return "unknown"
	}
}

// describeValue renders a value for discrepancy messages, truncated so a
// large document embedded in an expectation cannot flood the report.
func describeValue(v ldvalue.Value) string {
	const maxLen = 120
	s := v.JSONString()
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
