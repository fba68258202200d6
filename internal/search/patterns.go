package search

import "path/filepath"

// filterByPattern narrows paths to those matching at least one glob in
// patterns. An empty patterns list admits everything.
func filterByPattern(paths []string, patterns []string) []string {
	if len(patterns) == 0 {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if matchesAnyPattern(p, patterns) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
