package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/sokinpui/bookscript/internal/state"
	"github.com/sokinpui/bookscript/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	FaintColor   = color.New(color.Faint)
)

// Output receives the status helpers below.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

// --- Document reports ---

// FormatOutline renders an indented outline with line numbers, followed by
// characters and diagnostics.
func FormatOutline(outline []model.OutlineEntry, structure model.DocumentStructure) string {
	var b strings.Builder
	if len(outline) == 0 {
		b.WriteString(FaintColor.Sprint("No chapters, scenes or acts."))
		b.WriteString("\n")
	}
	for _, e := range outline {
		indent := strings.Repeat("  ", e.Level)
		label := HeaderColor.Sprint(e.Title)
		if e.Kind == model.TagScene {
			label = e.Title
		}
		fmt.Fprintf(&b, "%s%s %s\n", indent, label, FaintColor.Sprintf("(%s, lines %d-%d)", e.Kind, e.Line, e.LineEnd))
	}

	if len(structure.Characters) > 0 {
		b.WriteString("\n")
		b.WriteString(InfoColor.Sprint("Characters:"))
		b.WriteString("\n")
		for _, c := range structure.Characters {
			fmt.Fprintf(&b, "  %s %s\n", c.Name, FaintColor.Sprintf("(%d)", len(c.Lines)))
		}
	}

	if len(structure.Diagnostics) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningColor.Sprint("Warnings:"))
		b.WriteString("\n")
		for _, d := range structure.Diagnostics {
			fmt.Fprintf(&b, "  line %d: %s\n", d.Line, d.Message)
		}
	}
	return b.String()
}

// FormatStats renders document counters.
func FormatStats(stats model.Stats) string {
	return fmt.Sprintf("Lines: %d\nWords: %d\nCharacters: %d\nTags: %d\n",
		stats.Lines, stats.Words, stats.Characters, stats.Tags)
}

// FormatHistory renders the save history, marking the current entry.
func FormatHistory(entries []state.Entry, current int) string {
	if len(entries) == 0 {
		return FaintColor.Sprint("No saves recorded.") + "\n"
	}
	var b strings.Builder
	for i, e := range entries {
		marker := "  "
		if i == current {
			marker = SuccessColor.Sprint("* ")
		}
		hash := e.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(&b, "%s%s  %-6s %s %s\n",
			marker,
			e.Time().Local().Format(time.DateTime),
			e.Action,
			PathColor.Sprint(e.Path),
			FaintColor.Sprint(hash))
	}
	return b.String()
}

// --- Summaries ---

// PrintSummary writes a headless operation summary to w.
func PrintSummary(w io.Writer, summary model.Summary) {
	if summary.Message != "" {
		HeaderColor.Fprintln(w, summary.Message)
	}
	for _, f := range summary.Restored {
		SuccessColor.Fprintf(w, "Restored: %s\n", f)
	}
	for _, f := range summary.Written {
		SuccessColor.Fprintf(w, "Written: %s\n", f)
	}
	for _, f := range summary.Failed {
		ErrorColor.Fprintf(w, "Failed: %s\n", f)
	}
}
