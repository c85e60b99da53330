package reconciler

import (
	"fmt"
	"regexp"
	"strings"

	"testplan/internal/remote"
	"testplan/internal/version"
)

const maxSuiteTitle = 200

var suiteUnsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// PlanTitle returns the title of the plan for project at v.
func PlanTitle(project string, v version.SemanticVersion) string {
	return fmt.Sprintf("%s Test Plan v%s", project, v)
}

// ParsePlanVersion extracts the version from a plan title that follows the
// naming convention for project. The project part is compared case-insensitively.
func ParsePlanVersion(project, title string) (version.SemanticVersion, bool) {
	prefix := project + " Test Plan v"
	if len(title) <= len(prefix) || !strings.EqualFold(title[:len(prefix)], prefix) {
		return version.SemanticVersion{}, false
	}
	rest := title[len(prefix):]
	if strings.HasPrefix(rest, "v") || strings.HasPrefix(rest, "V") {
		return version.SemanticVersion{}, false
	}
	v, err := version.Parse(rest)
	if err != nil {
		return version.SemanticVersion{}, false
	}
	return v, true
}

// FindCurrentPlan returns the plan with the highest version among plans that
// follow the naming convention, together with every plan carrying that same
// version (normally just the one). It returns nil when none match.
func FindCurrentPlan(project string, plans []remote.TestPlanRef) (*remote.TestPlanRef, *version.SemanticVersion, []remote.TestPlanRef) {
	var (
		current    *remote.TestPlanRef
		currentVer version.SemanticVersion
		siblings   []remote.TestPlanRef
	)

	for i := range plans {
		v, ok := ParsePlanVersion(project, plans[i].Name)
		if !ok {
			continue
		}
		switch {
		case current == nil || currentVer.Less(v):
			current = &plans[i]
			currentVer = v
			siblings = []remote.TestPlanRef{plans[i]}
		case v == currentVer:
			siblings = append(siblings, plans[i])
		}
	}

	if current == nil {
		return nil, nil, nil
	}
	ref := *current
	return &ref, &currentVer, siblings
}

// SuiteTitle returns the suite title for a feature imported at v. Characters
// the service rejects are replaced and the result is truncated to the
// service's limit.
func SuiteTitle(feature string, v version.SemanticVersion) string {
	name := strings.TrimSpace(suiteUnsafeChars.ReplaceAllString(feature, "_"))
	if name == "" {
		name = "unnamed_suite"
	}
	title := fmt.Sprintf("%s - v%s", name, v)
	if r := []rune(title); len(r) > maxSuiteTitle {
		title = string(r[:maxSuiteTitle-3]) + "..."
	}
	return title
}
