package launcher

import (
	"slices"
	"strings"
)

// Vars maps placeholder names to their values. A template refers to a value
// as {name}.
type Vars map[string]string

// Render substitutes every {name} placeholder present in vars. Unknown
// placeholders are left untouched so a later pass or the shell sees them.
func Render(template string, vars Vars) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", vars[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
