// Package tui is the interactive editor: a text area with a live outline of
// the document's acts, chapters and scenes.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/bookscript/bks"
	"github.com/sokinpui/bookscript/internal/autosave"
	"github.com/sokinpui/bookscript/internal/parser"
	"github.com/sokinpui/bookscript/model"
)

// Previewer receives every new snapshot of the buffer.
type Previewer interface {
	Update(snap model.Snapshot) error
}

// Options configures a Model.
type Options struct {
	// Initial buffer, its file and the first status message.
	Text   string
	Path   string
	Status string

	Saver   *autosave.Saver
	Cancel  context.CancelFunc
	Preview Previewer
}

type focus int

const (
	focusEditor focus = iota
	focusOutline
)

type prompt int

const (
	promptNone prompt = iota
	promptSave
	promptOpen
)

// Model is the bubbletea model of the editor.
type Model struct {
	app     *bks.App
	saver   *autosave.Saver
	cancel  context.CancelFunc
	preview Previewer

	keys   KeyMap
	help   help.Model
	editor textarea.Model
	input  textinput.Model

	path          string
	status        string
	statusErr     bool
	revision      uint64
	savedRevision uint64

	outline   []model.OutlineEntry
	structure model.DocumentStructure
	stats     model.Stats

	showOutline bool
	showHelp    bool
	focus       focus
	selected    int
	prompt      prompt
	quitting    bool

	width, height int
}

func New(app *bks.App, opts Options) Model {
	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.Prompt = ""
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.Placeholder = "[CHAPTER: Title]"
	editor.SetValue(opts.Text)
	moveCursor(&editor, 0)
	editor.Focus()

	input := textinput.New()
	input.Prompt = "Path: "

	m := Model{
		app:         app,
		saver:       opts.Saver,
		cancel:      opts.Cancel,
		preview:     opts.Preview,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		editor:      editor,
		input:       input,
		path:        opts.Path,
		status:      opts.Status,
		showOutline: !app.Config().HideOutline,
	}
	m.reparse()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.previewCmd(m.snapshot())}
	if m.saver != nil {
		// An empty session must not overwrite an earlier autosave.
		if m.editor.Value() != "" {
			m.saver.Publish(m.snapshot())
		}
		cmds = append(cmds, waitForAutosave(m.saver))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)

	case savedMsg:
		if msg.err != nil {
			m.setError("Error saving file: %v", msg.err)
			return m, nil
		}
		m.path = msg.path
		m.savedRevision = msg.revision
		m.setStatus("Saved: %s", m.app.DisplayPath(msg.path))
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setError("Error loading file: %v", msg.err)
			return m, nil
		}
		m.editor.SetValue(msg.text)
		moveCursor(&m.editor, 0)
		m.path = msg.path
		m.selected = 0
		m.revision++
		m.savedRevision = m.revision
		m.reparse()
		m.setStatus("Loaded: %s", m.app.DisplayPath(msg.path))
		return m, m.publish()

	case exportedMsg:
		if msg.err != nil {
			m.setError("Error exporting: %v", msg.err)
			return m, nil
		}
		m.setStatus("Exported: %s", m.app.DisplayPath(msg.path))
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError("Clipboard error: %v", msg.err)
			return m, nil
		}
		m.setStatus("Copied to clipboard")
		return m, nil

	case nvimMsg:
		if msg.err != nil {
			m.setError("Neovim error: %v", msg.err)
			return m, nil
		}
		m.setStatus("Opened in Neovim")
		return m, nil

	case autosaveMsg:
		if msg.Err != nil {
			m.setError("Autosave failed: %v", msg.Err)
		} else if !m.quitting {
			m.setStatus("Autosaved at %s", msg.At.Format("15:04:05"))
		}
		return m, waitForAutosave(m.saver)

	case autosaveStoppedMsg:
		return m, nil

	case quitReadyMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.ToggleOutline):
		m.showOutline = !m.showOutline
		if !m.showOutline {
			m.setFocus(focusEditor)
		}
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.showOutline && m.focus == focusEditor {
			m.setFocus(focusOutline)
			m.selectCurrentEntry()
		} else {
			m.setFocus(focusEditor)
		}
		return m, nil

	case key.Matches(msg, m.keys.Save):
		if m.path == "" {
			return m, m.startPrompt(promptSave, "")
		}
		return m, m.save(m.path)

	case key.Matches(msg, m.keys.SaveAs):
		return m, m.startPrompt(promptSave, m.path)

	case key.Matches(msg, m.keys.Open):
		return m, m.startPrompt(promptOpen, "")

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.editor.Value())

	case key.Matches(msg, m.keys.Export):
		if m.path == "" {
			m.setError("Save the file before exporting")
			return m, nil
		}
		return m, m.exportCmd(m.path, m.editor.Value())

	case key.Matches(msg, m.keys.Nvim):
		return m, nvimCmd(m.app.Config().NvimAddress, m.path, m.editor.Value(), m.editor.Line()+1)
	}

	if m.focus == focusOutline {
		return m.updateOutline(msg)
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if m.editor.Value() != before {
		m.revision++
		m.reparse()
		return m, tea.Batch(cmd, m.publish())
	}
	return m, cmd
}

func (m Model) updateOutline(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.outline)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Jump):
		if m.selected < len(m.outline) {
			entry := m.outline[m.selected]
			moveCursor(&m.editor, entry.Line-1)
			m.setFocus(focusEditor)
			m.setStatus("Jumped to %s", entry.Title)
		}
	case key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusEditor)
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endPrompt()
		m.setStatus("Cancelled")
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		kind := m.prompt
		m.endPrompt()
		if value == "" {
			m.setError("No path given")
			return m, nil
		}
		if kind == promptOpen {
			return m, m.openCmd(value)
		}
		return m, m.save(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.setStatus("Saving...")
	if m.cancel != nil {
		m.cancel()
	}
	if m.saver == nil {
		return m, tea.Quit
	}
	return m, waitForFlush(m.saver)
}

func (m *Model) save(path string) tea.Cmd {
	return m.saveCmd(path, m.editor.Value(), m.revision)
}

func (m *Model) startPrompt(kind prompt, value string) tea.Cmd {
	m.prompt = kind
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.editor.Blur()
	return m.input.Focus()
}

func (m *Model) endPrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
	if m.focus == focusEditor {
		m.editor.Focus()
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusEditor {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
}

func (m *Model) setStatus(format string, a ...any) {
	m.status = fmt.Sprintf(format, a...)
	m.statusErr = false
}

func (m *Model) setError(format string, a ...any) {
	m.status = fmt.Sprintf(format, a...)
	m.statusErr = true
}

func (m *Model) reparse() {
	text := m.editor.Value()
	_, m.structure = parser.Analyze(text)
	m.outline = parser.Outline(m.structure)
	m.stats = parser.ComputeStats(text)
	if m.selected >= len(m.outline) {
		m.selected = max(len(m.outline)-1, 0)
	}
}

// selectCurrentEntry highlights the outline entry containing the cursor.
func (m *Model) selectCurrentEntry() {
	current, ok := parser.EntryAt(m.outline, m.editor.Line()+1)
	if !ok {
		return
	}
	for i, e := range m.outline {
		if e == current {
			m.selected = i
			return
		}
	}
}

func (m *Model) snapshot() model.Snapshot {
	return model.Snapshot{Revision: m.revision, Text: m.editor.Value(), Path: m.path}
}

// publish hands the current buffer to the autosaver and the preview.
func (m *Model) publish() tea.Cmd {
	snap := m.snapshot()
	if m.saver != nil {
		m.saver.Publish(snap)
	}
	return m.previewCmd(snap)
}

func (m *Model) previewCmd(snap model.Snapshot) tea.Cmd {
	if m.preview == nil {
		return nil
	}
	p, logger := m.preview, m.app.Logger()
	return func() tea.Msg {
		if err := p.Update(snap); err != nil {
			logger.Warn("failed to update preview", "revision", snap.Revision, "error", err)
		}
		return nil
	}
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	editorWidth := m.width
	if m.showOutline {
		editorWidth -= outlineWidth
	}
	// Title and status lines plus the help area.
	reserved := 2 + lipgloss.Height(m.help.View(m.keys))
	m.help.Width = m.width
	m.input.Width = m.width - len(m.input.Prompt) - 1
	m.editor.SetWidth(max(editorWidth, 10))
	m.editor.SetHeight(max(m.height-reserved, 3))
}

// moveCursor puts the cursor at the start of row (0-based).
func moveCursor(editor *textarea.Model, row int) {
	row = min(max(row, 0), editor.LineCount()-1)
	// Soft-wrapped lines take several steps per row, so bound the walk by
	// the buffer length.
	limit := len(editor.Value()) + editor.LineCount()
	for i := 0; editor.Line() > row && i < limit; i++ {
		editor.CursorUp()
	}
	for i := 0; editor.Line() < row && i < limit; i++ {
		editor.CursorDown()
	}
	editor.CursorStart()
}

// --- View ---

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.titleView())
	b.WriteString("\n")

	body := m.editor.View()
	if m.showOutline {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.outlineView())
	}
	b.WriteString(body)
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.statusView())
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleView() string {
	name := "untitled"
	if m.path != "" {
		name = m.app.DisplayPath(m.path)
	}
	title := titleStyle.Render(bks.Name) + " " + faintStyle.Render(name)
	if m.showHelp {
		title += "  " + faintStyle.Render(bks.About())
	}
	return title
}

func (m Model) outlineView() string {
	style := outlineStyle
	if m.focus == focusOutline {
		style = outlineFocusedStyle
	}
	width := outlineWidth - style.GetHorizontalFrameSize()
	height := max(m.editor.Height()-style.GetVerticalFrameSize(), 1)

	var lines []string
	if len(m.outline) == 0 {
		lines = append(lines, faintStyle.Render("No chapters yet"))
	}
	for i, e := range m.outline {
		label := strings.Repeat("  ", e.Level) + e.Title
		if r := []rune(label); len(r) > width {
			label = string(r[:width-1]) + "…"
		}
		if m.focus == focusOutline && i == m.selected {
			label = selectedStyle.Render(label)
		}
		lines = append(lines, label)
	}
	if n := len(m.structure.Diagnostics); n > 0 {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("%d warning(s)", n)))
	}
	if len(lines) > height {
		start := min(max(m.selected-height/2, 0), len(lines)-height)
		lines = lines[start : start+height]
	}
	return style.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) statusView() string {
	status := m.status
	if m.statusErr {
		status = errorStyle.Render(status)
	} else if status != "" {
		status = successStyle.Render(status)
	}

	parts := []string{status}
	if e, ok := parser.EntryAt(m.outline, m.editor.Line()+1); ok {
		parts = append(parts, e.Title)
	}
	parts = append(parts, fmt.Sprintf("Ln %d/%d  %d words", m.editor.Line()+1, m.stats.Lines, m.stats.Words))
	if m.Dirty() {
		parts = append(parts, dirtyStyle.Render("[+]"))
	}
	return statusStyle.Width(m.width).Render(strings.Join(parts, faintStyle.Render(" | ")))
}

// Dirty reports whether the buffer has edits not saved to its file.
func (m Model) Dirty() bool {
	return m.revision != m.savedRevision
}

// Status returns the current status message.
func (m Model) Status() string { return m.status }

// Path returns the file the buffer is saved to, empty if none.
func (m Model) Path() string { return m.path }

// Value returns the buffer contents.
func (m Model) Value() string { return m.editor.Value() }
