package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/bookscript/internal/ui"
)

// SourceProvider reads initial document text from stdin or the clipboard.
type SourceProvider struct {
	stdin         *os.File
	readClipboard func() (string, error)
}

// New creates a SourceProvider bound to the process stdin and the system
// clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:         os.Stdin,
		readClipboard: clipboard.ReadAll,
	}
}

// IsPiped reports whether stdin is a pipe or a file rather than a terminal.
func (sp *SourceProvider) IsPiped() bool {
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.IsPiped() {
		ui.Header("--- Reading from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading from clipboard ---")
	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Starting with an empty document.")
	}
	return content, nil
}

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}
