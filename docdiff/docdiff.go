// Package docdiff computes line-level change statistics between two
// document revisions. It exists for observability: events and logs describe
// a replacement by its magnitude instead of echoing full document text.
package docdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeStats summarizes a full-document replacement.
type ChangeStats struct {
	LinesAdded   int
	LinesRemoved int
}

// Stats diffs two documents at line granularity.
func Stats(before, after string) ChangeStats {
	if before == after {
		return ChangeStats{}
	}

	dmp := diffmatchpatch.New()
	beforeRunes, afterRunes, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(beforeRunes, afterRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var stats ChangeStats
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			stats.LinesAdded += countLines(diff.Text)
		case diffmatchpatch.DiffDelete:
			stats.LinesRemoved += countLines(diff.Text)
		}
	}
	return stats
}

func (s ChangeStats) String() string {
	return fmt.Sprintf("+%d -%d lines", s.LinesAdded, s.LinesRemoved)
}

// Changed reports whether the replacement altered any line.
func (s ChangeStats) Changed() bool {
	return s.LinesAdded > 0 || s.LinesRemoved > 0
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	count := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		count++
	}
	return count
}
