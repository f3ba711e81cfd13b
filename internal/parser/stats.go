package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/sokinpui/bookscript/model"
)

// ComputeStats counts lines, words and runes of text. Words on tag lines
// are not counted as prose.
func ComputeStats(text string) model.Stats {
	lines := ParseDocument(text)
	stats := model.Stats{
		Lines:      len(lines),
		Characters: utf8.RuneCountInString(text),
	}
	for _, line := range lines {
		if line.Tag != nil {
			stats.Tags++
			continue
		}
		stats.Words += len(strings.Fields(line.Text))
	}
	return stats
}
