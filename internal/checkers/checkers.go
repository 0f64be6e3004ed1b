// Package checkers provides quicktest checkers shared across test packages.
package checkers

import (
	"encoding/json"
	"fmt"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker that decodes the got value as JSON (string
// or []byte), evaluates the given JSONPath expression against it, and
// compares the result with want.
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (c *jsonPathChecker) ArgNames() []string {
	return []string{"got", "want"}
}

func (c *jsonPathChecker) Check(got interface{}, args []interface{}, note func(key string, value interface{})) error {
	var raw []byte
	switch v := got.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("got value must be a JSON string or []byte, have %T", got)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", c.path, err)
	}

	want := args[0]
	if value != want {
		note("path", c.path)
		note("value", value)
		return fmt.Errorf("values are not equal")
	}
	return nil
}
