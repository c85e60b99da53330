// Package version parses semantic versions of test plans and classifies the
// transition between the version currently deployed and a newly imported one.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxComponent is the largest value accepted for a single version component.
const MaxComponent = 999

var (
	// ErrInvalidVersion is returned when a version string is not X.Y.Z.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrVersionRegression is returned when the new version is lower than the current one.
	ErrVersionRegression = errors.New("version regression")
)

// SemanticVersion is a parsed X.Y.Z triple.
type SemanticVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Parse parses "X.Y.Z" (an optional leading "v" is accepted).
func Parse(s string) (SemanticVersion, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "v"), "V")

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return SemanticVersion{}, fmt.Errorf("%w: %q must have the form X.Y.Z", ErrInvalidVersion, s)
	}

	var nums [3]int
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return SemanticVersion{}, fmt.Errorf("%w: %q has a non-numeric component", ErrInvalidVersion, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return SemanticVersion{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
		}
		if n > MaxComponent {
			return SemanticVersion{}, fmt.Errorf("%w: %q component %d exceeds %d", ErrInvalidVersion, s, n, MaxComponent)
		}
		nums[i] = n
	}

	return SemanticVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) SemanticVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version as X.Y.Z.
func (v SemanticVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than o.
func (v SemanticVersion) Compare(o SemanticVersion) int {
	for _, d := range [3]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before o.
func (v SemanticVersion) Less(o SemanticVersion) bool {
	return v.Compare(o) < 0
}
