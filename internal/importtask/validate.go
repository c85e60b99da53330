package importtask

import (
	"strings"
	"unicode/utf8"

	"testplan/internal/api"
)

// MaxProjectNameLength bounds project names accepted for import.
const MaxProjectNameLength = 100

const forbiddenProjectChars = `<>:"|?*\/`

// ValidateProjectName rejects names the remote service cannot hold.
func ValidateProjectName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return api.InvalidRequestf("project name is required")
	}
	if trimmed != name {
		return api.InvalidRequestf("project name %q has leading or trailing whitespace", name)
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return api.InvalidRequestf("project name exceeds %d characters", MaxProjectNameLength)
	}
	if i := strings.IndexAny(name, forbiddenProjectChars); i >= 0 {
		return api.InvalidRequestf("project name contains forbidden character %q", name[i])
	}
	return nil
}

func projectKey(project string) string {
	return strings.ToLower(strings.TrimSpace(project))
}
