package ranges

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"github.com/stwalsh4118/git-check-rebase/internal/subject"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr        string
		defaultBase string
		base, top   string
	}{
		{"abc", "", "abc~", "abc"},
		{"..abc", "master", "master", "abc"},
		{"a..b", "", "a", "b"},
		{"a..", "", "a", "HEAD"},
		{"abc~5-", "", "abc~5", "abc"},
		{"abc^-", "", "abc^", "abc"},
		{"v1.0^2~3-", "", "v1.0^2~3", "v1.0"},
		{"origin/master~10-", "", "origin/master~10", "origin/master"},
		{"feature-x", "", "feature-x~", "feature-x"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			base, top, err := Parse(tt.expr, tt.defaultBase)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.expr, err)
			}
			if base != tt.base || top != tt.top {
				t.Errorf("Parse(%q) = (%q, %q), want (%q, %q)", tt.expr, base, top, tt.base, tt.top)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	var noBase *NoBaseError
	if _, _, err := Parse("..abc", ""); !errors.As(err, &noBase) {
		t.Errorf("expected NoBaseError, got %v", err)
	}

	for _, expr := range []string{"", "a,b", "up:a..b", "a..b..c"} {
		var rangeErr *RangeError
		if _, _, err := Parse(expr, "master"); !errors.As(err, &rangeErr) {
			t.Errorf("Parse(%q): expected RangeError, got %v", expr, err)
		}
	}
}

type fakeLister struct {
	ranges map[string][]git.Commit
	calls  []string
}

func (f *fakeLister) Log(base, top string) ([]git.Commit, error) {
	key := base + ".." + top
	f.calls = append(f.calls, key)
	commits, ok := f.ranges[key]
	if !ok {
		return nil, fmt.Errorf("unknown range %s", key)
	}
	return commits, nil
}

func commits(subjects ...string) []git.Commit {
	out := make([]git.Commit, len(subjects))
	for i, s := range subjects {
		out[i] = git.Commit{Hash: fmt.Sprintf("h%d-%s", i, s), Subject: s}
	}
	return out
}

func TestNew_NamedRange(t *testing.T) {
	repo := &fakeLister{ranges: map[string][]git.Commit{
		"v1..v2": commits("a", "b #ABC-123"),
	}}

	r, err := New("up:v1..v2", repo, nil, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if r.Name != "up" || r.Legend != "up = v1..v2" {
		t.Errorf("unexpected name/legend %q %q", r.Name, r.Legend)
	}
	if r.Base != "v1" || r.Top != "v2" {
		t.Errorf("unexpected base/top %q %q", r.Base, r.Top)
	}
	if e, ok := r.Lookup("b"); !ok || e.Index != 1 {
		t.Errorf("expected tracker suffix stripped key, got %+v (found=%v)", e, ok)
	}
}

func TestNew_UnnamedMultiExpression(t *testing.T) {
	repo := &fakeLister{ranges: map[string][]git.Commit{
		"origin/a..origin/b": commits("x", "y"),
		"c~..c":              commits("y", "z"),
	}}

	r, err := New("origin/a..origin/b,c", repo, nil, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if r.Name != "origin-a--origin-b,c" {
		t.Errorf("unexpected name %q", r.Name)
	}
	if r.Legend != "" || r.Base != "" || r.Top != "" {
		t.Errorf("multi-expression range must not have legend/base/top: %+v", r)
	}
	if len(r.Commits) != 4 {
		t.Fatalf("expected concatenated commits, got %d", len(r.Commits))
	}
	// later duplicate wins
	if e := r.ByKey["y"]; e.Index != 2 {
		t.Errorf("expected last duplicate to win, got index %d", e.Index)
	}
}

func TestNew_Aliases(t *testing.T) {
	repo := &fakeLister{ranges: map[string][]git.Commit{
		"base..top": commits("old name"),
	}}

	r, err := New("base..top", repo, subject.AliasMap{"old name": "new name"}, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := r.Lookup("new name"); !ok {
		t.Error("expected commit indexed under alias target")
	}
}

func TestNew_Errors(t *testing.T) {
	repo := &fakeLister{ranges: map[string][]git.Commit{}}

	var noBase *NoBaseError
	if _, err := New("new:..top", repo, nil, ""); !errors.As(err, &noBase) {
		t.Errorf("expected NoBaseError, got %v", err)
	}
	if _, err := New("a..b", repo, nil, ""); err == nil {
		t.Error("expected repository error to propagate")
	}
	if _, err := New("a..b", nil, nil, ""); err == nil {
		t.Error("expected error for nil repository")
	}
}
