package normalize

import (
	"os"
	"path/filepath"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "find all files", "find all files"},
		{"zero width space", "find\u200B all files", "find all files"},
		{"bidi override", "fix \u202Ethe bug", "fix the bug"},
		{"fullwidth letters", "ｆｉｎｄ files", "find files"},
		{"collapse whitespace", "  run   the\t\ttests \n", "run the tests"},
		{"control chars", "refactor\x07 this", "refactor this"},
		{"tag characters", "debug\U000E0041 crash", "debug crash"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.input)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFiles_RelativeAndDuplicates(t *testing.T) {
	cwd := "/work/project"
	got := Files([]string{"a.py", "./a.py", " ", "src/../b.py", "/abs/c.py"}, cwd)

	want := []string{"/work/project/a.py", "/work/project/b.py", "/abs/c.py"}
	if len(got) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestFiles_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := Files([]string{"~/notes.md"}, "/tmp")
	if len(got) != 1 || got[0] != filepath.Join(home, "notes.md") {
		t.Errorf("expected home-relative path, got %v", got)
	}
}
