// Package records post-processes search results with JQ expressions.
//
// Searches can return wide events with dozens of fields; a projection lets a
// caller reduce them to the fields or aggregates it actually needs before the
// result crosses the tool boundary.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// Projection is a compiled JQ expression applied per record.
type Projection struct {
	code *gojq.Code
}

// Compile parses and compiles a JQ expression.
func Compile(expression string) (*Projection, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Projection{code: code}, nil
}

// Validate checks an expression without building a Projection.
func Validate(expression string) error {
	_, err := Compile(expression)
	return err
}

// Result holds the projected values and any per-record errors.
type Result struct {
	Values   []any    `json:"values"`
	Errors   []string `json:"errors,omitempty"`
	RawCount int      `json:"raw_count"`
}

// Apply runs the projection over each record in order. Nil outputs are
// dropped, duplicate errors are reported once, and emission stops once
// maxResults values are collected (0 means unbounded).
func (p *Projection) Apply(recs []edr.Record, deduplicate bool, maxResults int) *Result {
	result := &Result{
		Values: make([]any, 0, len(recs)),
		Errors: make([]string, 0),
	}

	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)

	for i, rec := range recs {
		if maxResults > 0 && len(result.Values) >= maxResults {
			break
		}

		iter := p.code.Run(map[string]any(rec))
		for {
			if maxResults > 0 && len(result.Values) >= maxResults {
				break
			}

			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				msg := formatJQError(fmt.Sprintf("record[%d]", i), err)
				if !seenErrors[msg] {
					result.Errors = append(result.Errors, msg)
					seenErrors[msg] = true
				}
				continue
			}
			if v == nil {
				continue
			}

			result.RawCount++
			if deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			result.Values = append(result.Values, v)
		}
	}

	return result
}

// formatJQError decorates a runtime JQ error with a hint for common mistakes.
// gojq reports runtime failures as plain errors, so the hints match on the
// message text; they only affect the displayed string, never control flow.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()
	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may not exist in this event)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}
	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey builds a deduplication key for a projected value.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
