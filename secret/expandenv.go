package secret

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ExpandEnvStrict expands $VAR and ${VAR} in s from the environment.
// Every referenced variable must be set; the error lists all missing
// names. "$$" yields a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	missing := map[string]struct{}{}
	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			missing[name] = struct{}{}
		}
		return v
	})
	if len(missing) == 0 {
		return out, nil
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(names, ", "))
}
