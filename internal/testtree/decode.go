package testtree

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"

	"testplan/internal/api"
)

// Decode parses a tree from JSON or YAML and validates it.
func Decode(data []byte) (*Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, api.InvalidRequestf("content is required")
	}

	var tree Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: content: %v", api.ErrInvalidRequest, err)
	}
	if err := Validate(&tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// Validate checks the structural requirements of a tree. The returned error
// wraps api.ErrInvalidRequest and names the first offending element.
func Validate(t *Tree) error {
	if t == nil || len(t.Features) == 0 {
		return api.InvalidRequestf("at least one feature must be provided")
	}
	for i, f := range t.Features {
		if f.Name == "" {
			return api.InvalidRequestf("feature %d must have a name", i)
		}
		if len(f.Scenarios) == 0 {
			return api.InvalidRequestf("feature %q must contain at least one scenario", f.Name)
		}
		if f.Background != nil {
			for k, st := range f.Background.Steps {
				if st.Keyword == "" || st.Text == "" {
					return api.InvalidRequestf("background step %d of feature %q must have keyword and text", k, f.Name)
				}
			}
		}
		for j, s := range f.Scenarios {
			if s.Name == "" {
				return api.InvalidRequestf("scenario %d in feature %q must have a name", j, f.Name)
			}
			if len(s.Steps) == 0 {
				return api.InvalidRequestf("scenario %q in feature %q must contain at least one step", s.Name, f.Name)
			}
			for k, st := range s.Steps {
				if st.Keyword == "" || st.Text == "" {
					return api.InvalidRequestf("step %d of scenario %q must have keyword and text", k, s.Name)
				}
			}
			if s.Examples != nil {
				for r, row := range s.Examples.Rows {
					if len(row) != len(s.Examples.Headers) {
						return api.InvalidRequestf("example row %d of scenario %q has %d values, expected %d",
							r, s.Name, len(row), len(s.Examples.Headers))
					}
				}
			}
		}
	}
	return nil
}
