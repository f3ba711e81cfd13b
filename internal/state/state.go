package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sokinpui/bookscript/internal/storage"
)

const (
	stateFileName = "state.bks"
	revisionsDir  = "revisions"
	TrashDir      = "trash"

	ActionCreate = "create"
	ActionModify = "modify"

	noHash = "-"
)

var (
	ErrNothingToUndo = errors.New("no save to undo")
	ErrNothingToRedo = errors.New("no save to redo")
)

// Entry records one explicit save.
type Entry struct {
	Timestamp int64
	Action    string
	Path      string
	PrevHash  string // Content hash before the save, empty for a new file.
	Hash      string // Content hash written by the save.
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// State is the whole state file.
type State struct {
	History      []Entry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file and the revision store.
// It is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	statePath string
	state     *State
	StateDir  string
	now       func() time.Time
}

// New creates and loads a state manager rooted at stateDir.
func New(stateDir string) (*Manager, error) {
	if stateDir == "" {
		dataDir, err := storage.DataDir()
		if err != nil {
			return nil, err
		}
		stateDir = dataDir
	}
	stateDir = storage.ExpandHome(stateDir)
	if err := os.MkdirAll(filepath.Join(stateDir, revisionsDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
		now:       time.Now,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func emptyState() *State {
	return &State{CurrentIndex: -1, History: []Entry{}}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = emptyState()
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		m.state = emptyState()
		return nil
	}

	// First block is the current index.
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	st := &State{CurrentIndex: index, History: []Entry{}}

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) != 5 {
			return fmt.Errorf("invalid state file: incomplete history entry %q", lines[0])
		}
		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}
		entry := Entry{
			Timestamp: ts,
			Action:    lines[1],
			Path:      lines[2],
			PrevHash:  lines[3],
			Hash:      lines[4],
		}
		if entry.PrevHash == noHash {
			entry.PrevHash = ""
		}
		st.History = append(st.History, entry)
	}

	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file: current index %d out of range", st.CurrentIndex)
	}
	m.state = st
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}
	for _, e := range m.state.History {
		prev := e.PrevHash
		if prev == "" {
			prev = noHash
		}
		blocks = append(blocks, strings.Join([]string{
			strconv.FormatInt(e.Timestamp, 10),
			e.Action,
			e.Path,
			prev,
			e.Hash,
		}, "\n"))
	}
	if err := storage.Save(m.statePath, strings.Join(blocks, "\n\n")+"\n"); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

func (m *Manager) revisionPath(hash string) string {
	return filepath.Join(m.StateDir, revisionsDir, hash+".bks")
}

func (m *Manager) storeRevision(content string) (string, error) {
	hash := storage.ContentSHA256(content)
	path := m.revisionPath(hash)
	if storage.Exists(path) {
		return hash, nil
	}
	if err := storage.Save(path, content); err != nil {
		return "", fmt.Errorf("could not store revision: %w", err)
	}
	return hash, nil
}

// Record adds a save of content to path to the history. previous is the
// file content before the save; pass nil when the file did not exist.
// Entries after the current index are discarded.
func (m *Manager) Record(path, content string, previous *string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry{
		Timestamp: m.now().UTC().Unix(),
		Action:    ActionCreate,
		Path:      path,
	}
	if previous != nil {
		prevHash, err := m.storeRevision(*previous)
		if err != nil {
			return Entry{}, err
		}
		entry.Action = ActionModify
		entry.PrevHash = prevHash
	}
	hash, err := m.storeRevision(content)
	if err != nil {
		return Entry{}, err
	}
	entry.Hash = hash

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, entry)
	m.state.CurrentIndex++
	return entry, m.save()
}

// Undo returns the save at the current index and moves the pointer back.
func (m *Manager) Undo() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.CurrentIndex < 0 {
		return Entry{}, ErrNothingToUndo
	}
	entry := m.state.History[m.state.CurrentIndex]
	m.state.CurrentIndex--
	return entry, m.save()
}

// Redo moves the pointer forward and returns the save it now points at.
func (m *Manager) Redo() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return Entry{}, ErrNothingToRedo
	}
	m.state.CurrentIndex = next
	return m.state.History[next], m.save()
}

// Revision returns the stored content for a hash.
func (m *Manager) Revision(hash string) (string, error) {
	if hash == "" {
		return "", fmt.Errorf("empty revision hash")
	}
	return storage.Load(m.revisionPath(hash))
}

// Entries returns a copy of the history and the current index.
func (m *Manager) Entries() ([]Entry, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.state.History))
	copy(out, m.state.History)
	return out, m.state.CurrentIndex
}

// TrashPath returns where a file created by a save is moved on undo.
func (m *Manager) TrashPath(e Entry) string {
	name := fmt.Sprintf("%d-%s", e.Timestamp, filepath.Base(e.Path))
	return filepath.Join(m.StateDir, TrashDir, name)
}
