package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/sokinpui/bookscript/internal/parser"
	"github.com/sokinpui/bookscript/model"
)

// Format names an export target.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want md or html)", s)
	}
}

// Ext returns the file extension for a format.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.Typographer),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
)

// Markdown renders parsed lines as Markdown. Structural tags become
// headings; prose is passed through. Escaped `\[` lines are already valid
// Markdown escapes and render as a literal bracket.
func Markdown(lines []model.ParsedLine) string {
	var b strings.Builder
	for _, line := range lines {
		if line.Tag == nil {
			b.WriteString(line.Text)
			b.WriteByte('\n')
			continue
		}

		tag := line.Tag
		switch tag.Kind {
		case model.TagAct:
			fmt.Fprintf(&b, "# %s\n", tag.Value)
		case model.TagChapter:
			fmt.Fprintf(&b, "## %s\n", tag.Value)
		case model.TagScene:
			fmt.Fprintf(&b, "### %s\n", tag.Value)
		case model.TagCharacter:
			fmt.Fprintf(&b, "**%s**\n", tag.Value)
		case model.TagAction:
			fmt.Fprintf(&b, "*%s*\n", tag.Value)
		default:
			fmt.Fprintf(&b, "<!-- %s: %s -->\n", tag.Name, strings.ReplaceAll(tag.Value, "--", "- -"))
		}
	}
	return b.String()
}

// HTMLBody renders the document body through goldmark.
func HTMLBody(lines []model.ParsedLine) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(lines)), &buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// HTML renders a complete HTML document. The first act or chapter title is
// used as the page title.
func HTML(lines []model.ParsedLine) (string, error) {
	body, err := HTMLBody(lines)
	if err != nil {
		return "", err
	}
	title := "BookScript"
	for _, line := range lines {
		if line.Tag != nil && (line.Tag.Kind == model.TagAct || line.Tag.Kind == model.TagChapter) {
			title = line.Tag.Value
			break
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// Render dispatches on format.
func Render(text string, format Format) (string, error) {
	lines := parser.ParseDocument(text)
	switch format {
	case FormatMarkdown:
		return Markdown(lines), nil
	case FormatHTML:
		return HTML(lines)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}
