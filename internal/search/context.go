package search

import (
	"strings"

	"github.com/rune-engine/rune/internal/store"
)

// fileLines reconstructs a file's line text from its stored, non-overlapping
// chunks, keyed by absolute line number. Chunk content already lives in
// SQLite from indexing, so this enriches context without any disk I/O.
type fileLines struct {
	lines map[int]string
}

func newFileLines(chunks []*store.PersistedChunk) *fileLines {
	fl := &fileLines{lines: make(map[int]string)}
	for _, c := range chunks {
		for i, line := range strings.Split(c.Content, "\n") {
			fl.lines[c.StartLine+i] = line
		}
	}
	return fl
}

func (fl *fileLines) line(n int) (string, bool) {
	l, ok := fl.lines[n]
	return l, ok
}

// context returns up to n lines before and after lineNumber.
func (fl *fileLines) context(lineNumber, n int) (before, after []string) {
	for i := lineNumber - n; i < lineNumber; i++ {
		if l, ok := fl.line(i); ok {
			before = append(before, l)
		}
	}
	for i := lineNumber + 1; i <= lineNumber+n; i++ {
		if l, ok := fl.line(i); ok {
			after = append(after, l)
		}
	}
	return before, after
}
