package model

import "time"

// TagKind identifies the structural meaning of a tag line.
type TagKind int

const (
	TagUnknown TagKind = iota
	TagChapter
	TagScene
	TagAct
	TagCharacter
	TagAction
)

func (k TagKind) String() string {
	switch k {
	case TagChapter:
		return "chapter"
	case TagScene:
		return "scene"
	case TagAct:
		return "act"
	case TagCharacter:
		return "character"
	case TagAction:
		return "action"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k TagKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Tag is a bracketed marker such as `[SCENE: Beach]`.
type Tag struct {
	Kind  TagKind
	Name  string // Upper-cased keyword as written, e.g. "SCENE".
	Value string
}

// ParsedLine is one line of a document. Tag is nil for plain text.
// Problem is set when the line looked like a tag but could not be read as one.
type ParsedLine struct {
	LineNumber int
	Text       string
	Tag        *Tag
	Problem    string
}

// Act is a top level section of a document.
type Act struct {
	Title     string `json:"title"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// Chapter spans from its tag line to the line before the next chapter or act.
type Chapter struct {
	Title     string `json:"title"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	ParentAct string `json:"parent_act,omitempty"`
}

// Scene spans from its tag line to the line before the next scene, chapter or act.
type Scene struct {
	Description   string `json:"description"`
	LineStart     int    `json:"line_start"`
	LineEnd       int    `json:"line_end"`
	ParentChapter string `json:"parent_chapter,omitempty"`
}

// CharacterRef collects every line a character tag appears on.
type CharacterRef struct {
	Name  string `json:"name"`
	Lines []int  `json:"lines"`
}

// Diagnostic is a non-fatal parser complaint tied to a line.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// DocumentStructure is everything extracted from the tags of a document.
type DocumentStructure struct {
	Acts        []Act          `json:"acts"`
	Chapters    []Chapter      `json:"chapters"`
	Scenes      []Scene        `json:"scenes"`
	Characters  []CharacterRef `json:"characters"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}

// OutlineEntry is a navigable item of the flattened outline.
type OutlineEntry struct {
	Kind    TagKind `json:"kind"`
	Title   string  `json:"title"`
	Line    int     `json:"line"`
	LineEnd int     `json:"line_end"`
	Level   int     `json:"level"`
}

// Stats are simple document counters.
type Stats struct {
	Lines      int `json:"lines"`
	Words      int `json:"words"`
	Characters int `json:"characters"`
	Tags       int `json:"tags"`
}

// Snapshot is an immutable copy of the buffer handed to other goroutines.
type Snapshot struct {
	Revision uint64
	Text     string
	Path     string
}

// SaveResult reports one autosave attempt.
type SaveResult struct {
	Revision uint64
	Path     string
	At       time.Time
	Err      error
}

// Summary holds the results of a headless operation for display.
type Summary struct {
	Restored []string
	Written  []string
	Failed   []string
	Message  string
	Output   string
}
