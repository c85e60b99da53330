package version

import (
	"fmt"
	"strings"
)

// Transition is the kind of change between the current and the new version.
type Transition string

const (
	Major Transition = "major"
	Minor Transition = "minor"
	Patch Transition = "patch"
	Same  Transition = "same"
)

// CreatesNewPlan reports whether the transition keeps existing plans and adds a new one.
func (t Transition) CreatesNewPlan() bool {
	return t == Major || t == Minor
}

// Classify decides the transition from old to new. A nil old version means no
// plan exists yet and is always a Major transition. The first differing
// component decides; if it decreased, ErrVersionRegression is returned.
func Classify(old *SemanticVersion, new SemanticVersion) (Transition, error) {
	if old == nil {
		return Major, nil
	}

	steps := []struct {
		t        Transition
		from, to int
	}{
		{Major, old.Major, new.Major},
		{Minor, old.Minor, new.Minor},
		{Patch, old.Patch, new.Patch},
	}
	for _, s := range steps {
		if s.to > s.from {
			return s.t, nil
		}
		if s.to < s.from {
			return "", fmt.Errorf("%w: %s is lower than %s", ErrVersionRegression, new, old)
		}
	}
	return Same, nil
}

// ClassifyStrings parses both versions and classifies them. An empty old
// string is treated as absent.
func ClassifyStrings(old, new string) (Transition, error) {
	n, err := Parse(new)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(old) == "" {
		return Classify(nil, n)
	}
	o, err := Parse(old)
	if err != nil {
		return "", err
	}
	return Classify(&o, n)
}
