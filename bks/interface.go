package bks

import (
	"github.com/sokinpui/bookscript/internal/export"
	"github.com/sokinpui/bookscript/internal/parser"
	"github.com/sokinpui/bookscript/model"
)

// Document is a parsed text for using bks as a library.
type Document struct {
	Lines     []model.ParsedLine
	Structure model.DocumentStructure
	Outline   []model.OutlineEntry
	Stats     model.Stats
}

// Parse reads the tags of text and extracts its structure.
func Parse(text string) Document {
	lines, structure := parser.Analyze(text)
	return Document{
		Lines:     lines,
		Structure: structure,
		Outline:   parser.Outline(structure),
		Stats:     parser.ComputeStats(text),
	}
}

// Markdown returns the document rendered as Markdown.
func (d Document) Markdown() string {
	return export.Markdown(d.Lines)
}

// HTML returns the document rendered as a standalone HTML page.
func (d Document) HTML() (string, error) {
	return export.HTML(d.Lines)
}
