package script

import (
	"fmt"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// render replaces {{variable}} placeholders in tmpl with values from vars.
// Every placeholder must have a value.
func render(tmpl string, vars map[string]string) (string, error) {
	if missing := missingVars(tmpl, vars); len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]] // strip {{ and }}
	}), nil
}

func missingVars(tmpl string, vars map[string]string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, m := range variablePattern.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
