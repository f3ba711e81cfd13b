package nvim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neovim/go-client/nvim"

	"github.com/sokinpui/bookscript/internal/parser"
)

// ErrNoAddress is returned when no Neovim listen address is configured.
var ErrNoAddress = errors.New("no Neovim address: set NVIM_LISTEN_ADDRESS or --nvim")

// Manager handles the connection and interaction with a running Neovim.
type Manager struct {
	nvim *nvim.Nvim
}

// New connects to the Neovim instance listening on addr.
func New(addr string) (*Manager, error) {
	if addr == "" {
		return nil, ErrNoAddress
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Neovim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// OpenDocument shows the document in Neovim with the cursor on line
// (1-based). When path is empty a scratch buffer is used. The buffer lines
// are replaced with text so unsaved edits are visible too.
func (m *Manager) OpenDocument(path, text string, line int) error {
	lines := parser.SplitLines(text)
	content := make([][]byte, len(lines))
	for i, s := range lines {
		content[i] = []byte(s)
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) && len(lines) > 0 {
		line = len(lines)
	}

	b := m.nvim.NewBatch()
	if path == "" {
		b.Command("enew")
	} else {
		b.Command(fmt.Sprintf("edit! %s", EscapePath(path)))
	}
	b.SetBufferLines(0, 0, -1, true, content)
	b.SetWindowCursor(0, [2]int{line, 0})
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to open document in Neovim: %w", err)
	}
	return nil
}

// EscapePath escapes characters that Ex commands treat specially in file
// names.
func EscapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case ' ', '\\', '%', '#', '|', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
