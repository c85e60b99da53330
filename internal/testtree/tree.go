// Package testtree models the feature/scenario tree submitted for import and
// renders it into the formats the test-management service stores.
package testtree

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Scenario types accepted in Scenario.Type.
const (
	TypeScenario        = "scenario"
	TypeScenarioOutline = "scenario-outline"
)

// Tree is the root of an import payload.
type Tree struct {
	Name     string    `json:"name"`
	Features []Feature `json:"features"`
}

// Feature becomes one suite in the target plan.
type Feature struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Background  *Background `json:"background,omitempty"`
	Scenarios   []Scenario  `json:"scenarios"`
}

// Background steps are prepended to every scenario of the feature.
type Background struct {
	Steps []Step `json:"steps"`
}

// Scenario becomes exactly one test case. Outlines keep their example rows
// attached to the single case instead of being expanded.
type Scenario struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type,omitempty"`
	Steps       []Step        `json:"steps"`
	Examples    *ExampleTable `json:"examples,omitempty"`
	// Outlines is the alternative example form: one column->value map per row.
	Outlines []map[string]any `json:"outlines,omitempty"`
}

// Step is a single keyword + text line.
type Step struct {
	Keyword string `json:"keyword"`
	Text    string `json:"text"`
}

// Line joins the keyword and text the way they are shown to testers.
func (s Step) Line() string {
	return strings.TrimSpace(s.Keyword) + " " + strings.TrimSpace(s.Text)
}

// ExampleTable is the header + rows data of a scenario outline.
type ExampleTable struct {
	Headers []string     `json:"headers"`
	Rows    []ExampleRow `json:"rows"`
}

// ExampleRow is one row of example values.
//
// It unmarshals from a plain array, from {"values": [...]} and from the
// doubly nested {"values": {"values": [...]}} form.
type ExampleRow []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *ExampleRow) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for {
		obj, ok := raw.(map[string]any)
		if !ok {
			break
		}
		inner, ok := obj["values"]
		if !ok {
			return fmt.Errorf("example row object has no \"values\" field")
		}
		raw = inner
	}
	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("example row must be an array of values")
	}
	row := make(ExampleRow, 0, len(list))
	for _, v := range list {
		row = append(row, stringify(v))
	}
	*r = row
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

var placeholderRe = regexp.MustCompile(`<([^<>]+)>`)

// IsOutline reports whether the scenario carries example data.
func (s Scenario) IsOutline() bool {
	if strings.EqualFold(strings.ReplaceAll(s.Type, " ", "-"), TypeScenarioOutline) {
		return true
	}
	return len(s.Outlines) > 0 || (s.Examples != nil && len(s.Examples.Rows) > 0)
}

// Table returns the normalized example table of an outline, or nil.
// For the Outlines form the column order follows the first appearance of each
// <placeholder> in the steps; columns never referenced follow in name order.
func (s Scenario) Table() *ExampleTable {
	if s.Examples != nil && len(s.Examples.Headers) > 0 {
		return s.Examples
	}
	if len(s.Outlines) == 0 {
		return nil
	}

	var headers []string
	seen := map[string]bool{}
	known := map[string]bool{}
	for _, row := range s.Outlines {
		for k := range row {
			known[k] = true
		}
	}
	for _, st := range s.Steps {
		for _, m := range placeholderRe.FindAllStringSubmatch(st.Text, -1) {
			name := strings.TrimSpace(m[1])
			if known[name] && !seen[name] {
				seen[name] = true
				headers = append(headers, name)
			}
		}
	}
	var rest []string
	for k := range known {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	headers = append(headers, rest...)

	table := &ExampleTable{Headers: headers}
	for _, row := range s.Outlines {
		values := make(ExampleRow, len(headers))
		for i, h := range headers {
			values[i] = stringify(row[h])
		}
		table.Rows = append(table.Rows, values)
	}
	return table
}

// StepLines returns the background steps of f followed by the scenario steps,
// each rendered as a single line. Background lines are tagged so that the
// renderer can strip the marker again.
func (f Feature) StepLines(s Scenario) []string {
	var lines []string
	if f.Background != nil {
		for _, st := range f.Background.Steps {
			lines = append(lines, "Background: "+st.Line())
		}
	}
	for _, st := range s.Steps {
		lines = append(lines, st.Line())
	}
	return lines
}

// ScenarioCount returns the number of test cases the tree produces.
func (t *Tree) ScenarioCount() int {
	n := 0
	for _, f := range t.Features {
		n += len(f.Scenarios)
	}
	return n
}
