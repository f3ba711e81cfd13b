package parser

import (
	"sort"
	"strings"

	"github.com/sokinpui/bookscript/model"
)

// ExtractStructure builds acts, chapters, scenes and character references
// from parsed lines. Sections run until the line before the next section of
// the same or a higher level, or to the last line of the document.
func ExtractStructure(lines []model.ParsedLine) model.DocumentStructure {
	structure := model.DocumentStructure{
		Acts:        []model.Act{},
		Chapters:    []model.Chapter{},
		Scenes:      []model.Scene{},
		Characters:  []model.CharacterRef{},
		Diagnostics: []model.Diagnostic{},
	}

	lastLine := 0
	if len(lines) > 0 {
		lastLine = lines[len(lines)-1].LineNumber
	}

	act, chapter, scene := -1, -1, -1
	closeScene := func(end int) {
		if scene >= 0 {
			structure.Scenes[scene].LineEnd = end
			scene = -1
		}
	}
	closeChapter := func(end int) {
		closeScene(end)
		if chapter >= 0 {
			structure.Chapters[chapter].LineEnd = end
			chapter = -1
		}
	}
	closeAct := func(end int) {
		closeChapter(end)
		if act >= 0 {
			structure.Acts[act].LineEnd = end
			act = -1
		}
	}

	characterIndex := make(map[string]int)

	for _, line := range lines {
		if line.Problem != "" {
			structure.Diagnostics = append(structure.Diagnostics, model.Diagnostic{
				Line:    line.LineNumber,
				Message: line.Problem,
			})
		}
		if line.Tag == nil {
			continue
		}

		n := line.LineNumber
		switch line.Tag.Kind {
		case model.TagAct:
			closeAct(n - 1)
			structure.Acts = append(structure.Acts, model.Act{
				Title:     line.Tag.Value,
				LineStart: n,
			})
			act = len(structure.Acts) - 1

		case model.TagChapter:
			closeChapter(n - 1)
			c := model.Chapter{Title: line.Tag.Value, LineStart: n}
			if act >= 0 {
				c.ParentAct = structure.Acts[act].Title
			}
			structure.Chapters = append(structure.Chapters, c)
			chapter = len(structure.Chapters) - 1

		case model.TagScene:
			closeScene(n - 1)
			s := model.Scene{Description: line.Tag.Value, LineStart: n}
			if chapter >= 0 {
				s.ParentChapter = structure.Chapters[chapter].Title
			}
			structure.Scenes = append(structure.Scenes, s)
			scene = len(structure.Scenes) - 1

		case model.TagCharacter:
			if line.Tag.Value == "" {
				continue
			}
			key := strings.ToLower(line.Tag.Value)
			idx, ok := characterIndex[key]
			if !ok {
				structure.Characters = append(structure.Characters, model.CharacterRef{Name: line.Tag.Value})
				idx = len(structure.Characters) - 1
				characterIndex[key] = idx
			}
			structure.Characters[idx].Lines = append(structure.Characters[idx].Lines, n)
		}
	}
	closeAct(lastLine)

	return structure
}

// Outline flattens a structure into entries ordered by line.
func Outline(structure model.DocumentStructure) []model.OutlineEntry {
	entries := make([]model.OutlineEntry, 0, len(structure.Acts)+len(structure.Chapters)+len(structure.Scenes))
	for _, a := range structure.Acts {
		entries = append(entries, model.OutlineEntry{Kind: model.TagAct, Title: a.Title, Line: a.LineStart, LineEnd: a.LineEnd, Level: 0})
	}
	for _, c := range structure.Chapters {
		entries = append(entries, model.OutlineEntry{Kind: model.TagChapter, Title: c.Title, Line: c.LineStart, LineEnd: c.LineEnd, Level: 1})
	}
	for _, s := range structure.Scenes {
		entries = append(entries, model.OutlineEntry{Kind: model.TagScene, Title: s.Description, Line: s.LineStart, LineEnd: s.LineEnd, Level: 2})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Line < entries[j].Line
	})
	return entries
}

// EntryAt returns the deepest outline entry whose section contains line.
func EntryAt(outline []model.OutlineEntry, line int) (model.OutlineEntry, bool) {
	var best model.OutlineEntry
	found := false
	for _, e := range outline {
		if line < e.Line || line > e.LineEnd {
			continue
		}
		if !found || e.Level > best.Level {
			best = e
			found = true
		}
	}
	return best, found
}

// Analyze parses text and extracts its structure in one go.
func Analyze(text string) ([]model.ParsedLine, model.DocumentStructure) {
	lines := ParseDocument(text)
	return lines, ExtractStructure(lines)
}
