// Package expectjson implements structural comparison of JSON values with
// support for partial matching and placeholder matchers.
//
// The general model is:
//
// 1. An expected document is an ordinary JSON-shaped value in which any leaf
// or subtree may be replaced by a Matcher, a named predicate such as "any
// UUID string" or "an integer between 1 and 10".
//
// 2. Comparison entry points differ in strictness. MatchExact requires full
// structural equality; MatchContains ignores actual object keys that the
// expected document does not mention; MatchArrayContains treats the expected
// array as an unordered subset of the actual array.
//
// 3. A comparison always walks the entire expected tree and reports every
// discrepancy it finds, each with a path locating the divergent node, so one
// failed assertion describes all of the problems at once.
//
// The Assert* functions wrap the comparison entry points for use with
// *testing.T or any compatible test context.
package expectjson
