package scaffold

import (
	"strings"
	"testing"
)

func TestUnifiedDiff_Identical(t *testing.T) {
	if diff := UnifiedDiff("a", "b", "x\ny\n", "x\ny\n"); diff != "" {
		t.Errorf("expected empty diff, got %q", diff)
	}
}

func TestUnifiedDiff_Changes(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     []string
	}{
		{"added line", "one\ntwo\n", "one\ntwo\nthree\n", []string{"+three", " two"}},
		{"removed line", "one\ntwo\nthree\n", "one\nthree\n", []string{"-two", " one", " three"}},
		{"modified line", "one\nold\nthree\n", "one\nnew\nthree\n", []string{"-old", "+new"}},
		{"from empty", "", "fresh\n", []string{"+fresh", "@@ -0,0 +1,1 @@"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := UnifiedDiff("existing", "new", tt.old, tt.new)
			if !strings.HasPrefix(diff, "--- existing\n+++ new\n") {
				t.Errorf("expected headers, got:\n%s", diff)
			}
			for _, want := range tt.want {
				if !strings.Contains(diff, want+"\n") {
					t.Errorf("expected line %q in:\n%s", want, diff)
				}
			}
		})
	}
}

func TestUnifiedDiff_HunkHeader(t *testing.T) {
	diff := UnifiedDiff("a", "b", "1\n2\n3\n4\n5\n", "1\n2\nX\n4\n5\n")
	if !strings.Contains(diff, "@@ -1,5 +1,5 @@\n") {
		t.Errorf("unexpected hunk header:\n%s", diff)
	}
}

func TestUnifiedDiff_SeparateHunks(t *testing.T) {
	var a, b []string
	for i := 0; i < 20; i++ {
		a = append(a, "line")
		b = append(b, "line")
	}
	a[1], b[1] = "first-old", "first-new"
	a[18], b[18] = "last-old", "last-new"

	diff := UnifiedDiff("a", "b", strings.Join(a, "\n"), strings.Join(b, "\n"))
	if n := strings.Count(diff, "@@ -"); n != 2 {
		t.Errorf("expected 2 hunks, got %d:\n%s", n, diff)
	}
}
