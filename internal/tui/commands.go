package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokinpui/bookscript/internal/autosave"
	"github.com/sokinpui/bookscript/internal/export"
	"github.com/sokinpui/bookscript/internal/nvim"
	"github.com/sokinpui/bookscript/internal/source"
	"github.com/sokinpui/bookscript/model"
)

// quitTimeout bounds how long quitting waits for the final autosave.
const quitTimeout = 5 * time.Second

// --- Messages ---

type savedMsg struct {
	path     string
	revision uint64
	err      error
}

type openedMsg struct {
	path string
	text string
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

type copiedMsg struct{ err error }

type nvimMsg struct{ err error }

type autosaveMsg struct{ model.SaveResult }

type autosaveStoppedMsg struct{}

type quitReadyMsg struct{}

// --- Commands ---

func (m *Model) saveCmd(path, text string, revision uint64) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		abs, err := app.Save(path, text)
		return savedMsg{path: abs, revision: revision, err: err}
	}
}

func (m *Model) openCmd(path string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		abs := app.Resolve(path)
		text, err := app.Open(abs)
		return openedMsg{path: abs, text: text, err: err}
	}
}

func (m *Model) exportCmd(path, text string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		target, err := app.ExportToFile(path, text, export.FormatHTML)
		return exportedMsg{path: target, err: err}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: source.CopyToClipboard(text)}
	}
}

func nvimCmd(addr, path, text string, line int) tea.Cmd {
	return func() tea.Msg {
		manager, err := nvim.New(addr)
		if err != nil {
			return nvimMsg{err: err}
		}
		defer manager.Close()
		return nvimMsg{err: manager.OpenDocument(path, text, line)}
	}
}

// waitForAutosave delivers the next autosave result, or reports that the
// autosaver has stopped.
func waitForAutosave(saver *autosave.Saver) tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-saver.Results():
			return autosaveMsg{r}
		case <-saver.Done():
			return autosaveStoppedMsg{}
		}
	}
}

// waitForFlush blocks until the autosaver has written its final snapshot.
func waitForFlush(saver *autosave.Saver) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-saver.Done():
		case <-time.After(quitTimeout):
		}
		return quitReadyMsg{}
	}
}
