package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sokinpui/bookscript/model"
)

// UntitledTitle is used for structural tags that carry no value.
const UntitledTitle = "Untitled"

var (
	// tagRegex matches a whole trimmed line of the form `[KEYWORD]` or
	// `[KEYWORD: value]`. The value runs up to the last closing bracket.
	tagRegex = regexp.MustCompile(`^\[\s*([A-Za-z][A-Za-z0-9_]*)\s*(:\s*(.*?))?\s*\]$`)

	// openTagRegex recognises the start of something meant to be a tag.
	openTagRegex = regexp.MustCompile(`^\[\s*[A-Za-z][A-Za-z0-9_]*\s*:`)

	// leadingKeywordRegex captures the word right after an opening bracket.
	leadingKeywordRegex = regexp.MustCompile(`^\[\s*([A-Za-z][A-Za-z0-9_]*)(\s|$)`)

	// colonTagRegex recognises a bracketed line with a keyword part before a colon.
	colonTagRegex = regexp.MustCompile(`^\[([^\]:]*):.*\]$`)
)

var keywords = map[string]model.TagKind{
	"CHAPTER":   model.TagChapter,
	"SCENE":     model.TagScene,
	"ACT":       model.TagAct,
	"CHARACTER": model.TagCharacter,
	"ACTION":    model.TagAction,
}

// KindOf returns the tag kind for a keyword, case-insensitively.
func KindOf(keyword string) model.TagKind {
	if kind, ok := keywords[strings.ToUpper(keyword)]; ok {
		return kind
	}
	return model.TagUnknown
}

// IsEscaped reports whether a line is an escaped literal bracket line.
func IsEscaped(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), `\[`)
}

// ParseLine reads a single line. lineNumber is 1-based.
func ParseLine(line string, lineNumber int) model.ParsedLine {
	parsed := model.ParsedLine{
		LineNumber: lineNumber,
		Text:       line,
	}

	trimmed := strings.TrimSpace(line)
	if IsEscaped(trimmed) || !strings.HasPrefix(trimmed, "[") {
		return parsed
	}

	match := tagRegex.FindStringSubmatch(trimmed)
	if match == nil {
		parsed.Problem = describeMalformed(trimmed)
		return parsed
	}

	name := strings.ToUpper(match[1])
	hasColon := match[2] != ""
	value := strings.TrimSpace(match[3])
	kind := KindOf(name)

	// A bare `[word]` is only a tag when the word is a known keyword, so
	// stage directions like `[laughs]` stay text.
	if !hasColon && kind == model.TagUnknown {
		return parsed
	}

	if value == "" {
		switch kind {
		case model.TagChapter, model.TagScene, model.TagAct:
			parsed.Problem = fmt.Sprintf("%s tag has no title", strings.ToLower(name))
			value = UntitledTitle
		case model.TagCharacter:
			parsed.Problem = "character tag has no name"
		}
	}

	parsed.Tag = &model.Tag{Kind: kind, Name: name, Value: value}
	return parsed
}

func describeMalformed(trimmed string) string {
	if !strings.HasSuffix(trimmed, "]") {
		if openTagRegex.MatchString(trimmed) {
			return "unterminated tag: missing closing ']'"
		}
		// `[CHAPTER` or `[SCENE Beach` without a colon.
		if m := leadingKeywordRegex.FindStringSubmatch(trimmed); m != nil && KindOf(m[1]) != model.TagUnknown {
			return "unterminated tag: missing closing ']'"
		}
		return ""
	}
	if m := colonTagRegex.FindStringSubmatch(trimmed); m != nil {
		keyword := strings.TrimSpace(m[1])
		if keyword == "" {
			return "tag has an empty keyword"
		}
		return fmt.Sprintf("invalid tag keyword %q", keyword)
	}
	return ""
}

// SplitLines splits text into lines. Both "\n" and "\r\n" end a line and a
// trailing newline does not produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// ParseDocument parses every line of text, numbering lines from 1.
func ParseDocument(text string) []model.ParsedLine {
	lines := SplitLines(text)
	parsed := make([]model.ParsedLine, 0, len(lines))
	for i, line := range lines {
		parsed = append(parsed, ParseLine(line, i+1))
	}
	return parsed
}
