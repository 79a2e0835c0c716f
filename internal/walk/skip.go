package walk

import "strings"

// DefaultSkip contains the directory names never descended into.
var DefaultSkip = []string{"node_modules", "dist", ".angular"}

// skipped reports whether rel, a slash-separated path relative to the walk
// root, has a segment equal to one of names. Names are compared exactly;
// "dist" skips app/dist/x.ts but not app/distinct/x.ts.
func skipped(rel string, names []string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." {
			continue
		}
		for _, name := range names {
			if part == strings.TrimSpace(name) {
				return true
			}
		}
	}
	return false
}
