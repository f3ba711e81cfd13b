package parser

import (
	"reflect"
	"testing"

	"github.com/sokinpui/bookscript/model"
)

const sampleDocument = `Title page
[ACT: One]
[CHAPTER: Arrival]
[SCENE: Beach]
[CHARACTER: Mara]
The tide was out.
[SCENE: Cliff]
[CHARACTER: mara]
[CHARACTER: Jon]
[CHAPTER: Storm]
Rain.
[ACT: Two]
[SCENE: Harbour]
Boats.
`

func TestExtractStructure(t *testing.T) {
	_, s := Analyze(sampleDocument)

	wantActs := []model.Act{
		{Title: "One", LineStart: 2, LineEnd: 11},
		{Title: "Two", LineStart: 12, LineEnd: 14},
	}
	if !reflect.DeepEqual(s.Acts, wantActs) {
		t.Errorf("Acts = %+v, want %+v", s.Acts, wantActs)
	}

	wantChapters := []model.Chapter{
		{Title: "Arrival", LineStart: 3, LineEnd: 9, ParentAct: "One"},
		{Title: "Storm", LineStart: 10, LineEnd: 11, ParentAct: "One"},
	}
	if !reflect.DeepEqual(s.Chapters, wantChapters) {
		t.Errorf("Chapters = %+v, want %+v", s.Chapters, wantChapters)
	}

	wantScenes := []model.Scene{
		{Description: "Beach", LineStart: 4, LineEnd: 6, ParentChapter: "Arrival"},
		{Description: "Cliff", LineStart: 7, LineEnd: 9, ParentChapter: "Arrival"},
		{Description: "Harbour", LineStart: 13, LineEnd: 14},
	}
	if !reflect.DeepEqual(s.Scenes, wantScenes) {
		t.Errorf("Scenes = %+v, want %+v", s.Scenes, wantScenes)
	}

	wantCharacters := []model.CharacterRef{
		{Name: "Mara", Lines: []int{5, 8}},
		{Name: "Jon", Lines: []int{9}},
	}
	if !reflect.DeepEqual(s.Characters, wantCharacters) {
		t.Errorf("Characters = %+v, want %+v", s.Characters, wantCharacters)
	}

	if len(s.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %+v", s.Diagnostics)
	}
}

func TestExtractStructureEmpty(t *testing.T) {
	s := ExtractStructure(nil)
	if len(s.Acts)+len(s.Chapters)+len(s.Scenes)+len(s.Characters)+len(s.Diagnostics) != 0 {
		t.Fatalf("expected empty structure, got %+v", s)
	}
	if s.Chapters == nil {
		t.Error("expected non-nil slices for JSON output")
	}
}

func TestExtractStructureDiagnostics(t *testing.T) {
	_, s := Analyze("[CHAPTER]\n[SCENE: open\nplain\n[1x: y]\n")
	want := []int{1, 2, 4}
	if len(s.Diagnostics) != len(want) {
		t.Fatalf("expected %d diagnostics, got %+v", len(want), s.Diagnostics)
	}
	for i, d := range s.Diagnostics {
		if d.Line != want[i] {
			t.Errorf("diagnostic %d on line %d, want %d", i, d.Line, want[i])
		}
	}
	if len(s.Chapters) != 1 || s.Chapters[0].Title != UntitledTitle {
		t.Errorf("expected one untitled chapter, got %+v", s.Chapters)
	}
	if len(s.Scenes) != 0 {
		t.Errorf("unterminated scene must not open a scene, got %+v", s.Scenes)
	}
}

func TestOutlineAndEntryAt(t *testing.T) {
	_, s := Analyze(sampleDocument)
	outline := Outline(s)

	var titles []string
	for _, e := range outline {
		titles = append(titles, e.Title)
	}
	wantTitles := []string{"One", "Arrival", "Beach", "Cliff", "Storm", "Two", "Harbour"}
	if !reflect.DeepEqual(titles, wantTitles) {
		t.Fatalf("outline titles = %v, want %v", titles, wantTitles)
	}

	tests := []struct {
		line  int
		title string
		ok    bool
	}{
		{1, "", false},
		{2, "One", true},
		{3, "Arrival", true},
		{6, "Beach", true},
		{11, "Storm", true},
		{14, "Harbour", true},
		{99, "", false},
	}
	for _, tt := range tests {
		e, ok := EntryAt(outline, tt.line)
		if ok != tt.ok || e.Title != tt.title {
			t.Errorf("EntryAt(%d) = %q,%v want %q,%v", tt.line, e.Title, ok, tt.title, tt.ok)
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats("[SCENE: Beach]\nThe tide was out.\n\nGulls é\n")
	want := model.Stats{Lines: 4, Words: 6, Characters: 42, Tags: 1}
	if stats != want {
		t.Errorf("ComputeStats = %+v, want %+v", stats, want)
	}
}
