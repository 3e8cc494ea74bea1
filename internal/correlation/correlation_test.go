package correlation

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stwalsh4118/git-check-rebase/internal/filter"
	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/meta"
	"github.com/stwalsh4118/git-check-rebase/internal/ranges"
	"github.com/stwalsh4118/git-check-rebase/internal/subject"
	"github.com/stwalsh4118/git-check-rebase/internal/tracker"
	"github.com/stwalsh4118/git-check-rebase/internal/view"
)

// fakeRepo serves both range listing and log entries
type fakeRepo struct {
	ranges map[string][]git.Commit // "base..top" -> commits
	logs   map[string]string
}

func (f *fakeRepo) Log(base, top string) ([]git.Commit, error) {
	cs, ok := f.ranges[base+".."+top]
	if !ok {
		return nil, fmt.Errorf("unknown range %s..%s", base, top)
	}
	return cs, nil
}

func (f *fakeRepo) LogEntry(id string) (string, error) {
	return f.logs[id], nil
}

// fakeEqualer treats commits in the same group as equal
type fakeEqualer struct {
	groups map[string]string
	calls  int
}

func (f *fakeEqualer) AreCommitsEqual(c1, c2 string, _ bool) (bool, error) {
	f.calls++
	if c1 == c2 {
		return true, nil
	}
	g1, ok1 := f.groups[c1]
	g2, ok2 := f.groups[c2]
	return ok1 && ok2 && g1 == g2, nil
}

func commits(pairs ...string) []git.Commit {
	var out []git.Commit
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, git.Commit{Hash: pairs[i], Subject: pairs[i+1], Date: "05.03.24 14:30", Author: "Dev"})
	}
	return out
}

func mustRange(t *testing.T, def string, repo *fakeRepo, store *meta.Store) *ranges.MultiRange {
	t.Helper()
	var aliases subject.AliasLookup
	if store != nil {
		aliases = store
	}
	r, err := ranges.New(def, repo, aliases, "")
	if err != nil {
		t.Fatalf("ranges.New(%q) failed: %v", def, err)
	}
	return r
}

func mustMeta(t *testing.T, content string) *meta.Store {
	t.Helper()
	s, err := meta.Parse(content, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("meta.Parse() failed: %v", err)
	}
	return s
}

func hashes(row *Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		if c != nil {
			out[i] = c.Hash
		}
	}
	return out
}

func TestBuild_LastWinsAndSuffixStripping(t *testing.T) {
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"b0..b": commits("b1", "fix bug", "b2", "add feature", "b3", "add feature"),
		"a0..a": commits("a1", "fix bug #ABCD-1234", "a2", "add feature"),
	}}

	rb := mustRange(t, "B:b0..b", repo, nil)
	ra := mustRange(t, "A:a0..a", repo, nil)

	tab, err := Build([]*ranges.MultiRange{rb, ra}, nil, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if len(tab.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tab.Rows))
	}
	if tab.Rows[0].Key != "fix bug" || tab.Rows[1].Key != "add feature" {
		t.Errorf("unexpected keys %q, %q", tab.Rows[0].Key, tab.Rows[1].Key)
	}
	if got := hashes(tab.Rows[0]); !reflect.DeepEqual(got, []string{"b1", "a1"}) {
		t.Errorf("fix bug row = %v", got)
	}
	if got := hashes(tab.Rows[1]); !reflect.DeepEqual(got, []string{"b3", "a2"}) {
		t.Errorf("add feature row should use the last duplicate, got %v", got)
	}
	if !reflect.DeepEqual(tab.Legends(), []string{"B = b0..b", "A = a0..a"}) {
		t.Errorf("unexpected legends %v", tab.Legends())
	}
}

func TestBuild_PositionalBackfill(t *testing.T) {
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"o..old":   commits("o1", "one", "o2", "two (renamed)", "o3", "three"),
		"n..new":   commits("n1", "one", "n2", "two", "n3", "three"),
		"s..short": commits("s1", "one"),
		"x..moved": commits("x1", "three", "x2", "renamed", "x3", "one"),
	}}

	rs := []*ranges.MultiRange{
		mustRange(t, "old:o..old", repo, nil),
		mustRange(t, "short:s..short", repo, nil),
		mustRange(t, "moved:x..moved", repo, nil),
		mustRange(t, "new:n..new", repo, nil),
	}
	tab, err := Build(rs, nil, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// "old" keeps every match in place, so the renamed commit is backfilled
	if got := hashes(tab.Rows[1]); !reflect.DeepEqual(got, []string{"o2", "", "", "n2"}) {
		t.Errorf("row two = %v", got)
	}
	// "moved" matched "one" out of position: no backfill at all
	if tab.Rows[1].Cells[2] != nil {
		t.Error("moved range must not be backfilled")
	}
	if got := hashes(tab.Rows[2]); !reflect.DeepEqual(got, []string{"o3", "", "x1", "n3"}) {
		t.Errorf("row three = %v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	repo := &fakeRepo{}
	if _, err := Build(nil, nil, repo, logging.NewNoopLogger()); err == nil {
		t.Error("expected error without ranges")
	}
	if _, err := Build(nil, nil, repo, nil); err == nil {
		t.Error("expected error for nil logger")
	}
	if _, err := Build(nil, nil, nil, logging.NewNoopLogger()); err == nil {
		t.Error("expected error for nil repository")
	}
}

func TestCompare(t *testing.T) {
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"u..up":  commits("h1", "fix bug", "h5", "other"),
		"n..new": commits("h3", "fix bug", "h6", "other", "h7", "only new"),
	}}
	store := mustMeta(t, "fix bug\n  ok: h1 h3\n")

	rs := []*ranges.MultiRange{
		mustRange(t, "up:u..up", repo, store),
		mustRange(t, "new:n..new", repo, store),
	}
	tab, err := Build(rs, store, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	eq := &fakeEqualer{groups: map[string]string{"h5": "g", "h6": "g"}}
	if err := tab.Compare(eq, false); err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}

	fix := tab.Rows[0]
	if fix.Cells[0].State != view.StateBase || fix.Cells[1].State != view.StateChecked {
		t.Errorf("confirmed pair should give CHECKED, got %v / %v", fix.Cells[0].State, fix.Cells[1].State)
	}
	if !fix.AllOK() || fix.AllEqual() {
		t.Error("checked row must be all ok but not all equal")
	}

	other := tab.Rows[1]
	if other.Cells[1].State != view.StateEqual || !other.AllEqual() {
		t.Errorf("expected EQUAL, got %v", other.Cells[1].State)
	}

	// base falls back to the last cell and is marked even without matches
	only := tab.Rows[2]
	if only.BaseIndex() != 1 || only.Cells[1].State != view.StateBase || only.AllOK() {
		t.Errorf("unexpected only-new row: base=%d state=%v", only.BaseIndex(), only.Cells[1].State)
	}
}

func TestCompare_ReversedPair(t *testing.T) {
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"a..old": commits("h1", "change"),
		"b..new": commits("h3", "change"),
	}}
	store := mustMeta(t, "change\n  ok: h3 h1\n")
	rs := []*ranges.MultiRange{mustRange(t, "old:a..old", repo, store), mustRange(t, "new:b..new", repo, store)}
	tab, err := Build(rs, store, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if err := tab.Compare(&fakeEqualer{}, true); err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	if tab.Rows[0].Cells[1].State != view.StateChecked {
		t.Errorf("reversed pair should still give CHECKED, got %v", tab.Rows[0].Cells[1].State)
	}
}

type errEqualer struct{}

func (errEqualer) AreCommitsEqual(string, string, bool) (bool, error) {
	return false, fmt.Errorf("git show failed")
}

func TestCompare_PropagatesErrors(t *testing.T) {
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"a..old": commits("h1", "change"),
		"b..new": commits("h2", "change"),
	}}
	rs := []*ranges.MultiRange{mustRange(t, "old:a..old", repo, nil), mustRange(t, "new:b..new", repo, nil)}
	tab, err := Build(rs, nil, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if err := tab.Compare(errEqualer{}, false); err == nil || !strings.Contains(err.Error(), "git show failed") {
		t.Errorf("expected comparison error, got %v", err)
	}
}

func TestRowAttributes(t *testing.T) {
	log := "commit n1\nAuthor: Dev\n\n    fix it\n\n    Fixes BUG-12, see ABC-3 and BUG-12 again.\n" +
		"    Not a key: RFC-822-style, lower-1.\n    Feature: block-jobs\n" +
		"    (cherry picked from commit deadbeef)\n"
	repo := &fakeRepo{
		ranges: map[string][]git.Commit{"b..new": commits("n1", "fix it", "n2", "tagged")},
		logs:   map[string]string{"n1": log},
	}
	store := mustMeta(t, "%feature: meta-feature\n  upstreaming: v9.0\ntagged\nfix it\n%end\n")
	tab, err := Build([]*ranges.MultiRange{mustRange(t, "new:b..new", repo, store)}, store, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	row := tab.Rows[0]
	if !row.Cherry {
		t.Error("expected cherry flag")
	}
	if !reflect.DeepEqual(row.MsgIssues, []string{"ABC-3", "BUG-12"}) {
		t.Errorf("MsgIssues = %v", row.MsgIssues)
	}
	if row.Feature != "block-jobs" {
		t.Errorf("trailer should override feature, got %q", row.Feature)
	}
	if row.Upstreaming != "v9.0" {
		t.Errorf("upstreaming should come from meta, got %q", row.Upstreaming)
	}

	tagged := tab.Rows[1]
	if tagged.Cherry || len(tagged.MsgIssues) != 0 || tagged.Feature != "meta-feature" {
		t.Errorf("unexpected attributes of tagged row: %+v", tagged)
	}
}

func TestMessageIssues_Lookahead(t *testing.T) {
	got := messageIssues("QEMU-5- is skipped, QEMU-7 is not, X-1-Y skipped, Y-2")
	if !reflect.DeepEqual(got, []string{"Y-2", "QEMU-7"}) {
		t.Errorf("messageIssues() = %v", got)
	}
}

type testIssue struct{ key string }

func (i testIssue) Key() string      { return i.key }
func (i testIssue) IsCritical() bool { return false }
func (i testIssue) IsFixed() bool    { return false }

func displayTable(t *testing.T) *Table {
	t.Helper()
	repo := &fakeRepo{ranges: map[string][]git.Commit{
		"u..up":  commits("u1", "upstream fix"),
		"n..new": commits("n1", "upstream fix"),
		"o..our": commits("o1", "upstream fix", "o2", "dropped", "o3", "pending", "o4", "tracked", "o5", "unknown"),
	}}
	store := mustMeta(t, "pending\n  upstreaming: v8.2\n  first line\n  second line\n%drop: obsolete\ndropped\n%end\n")

	rs := []*ranges.MultiRange{
		mustRange(t, "up:u..up", repo, store),
		mustRange(t, "new:n..new", repo, store),
		mustRange(t, "our:o..our", repo, store),
	}
	tab, err := Build(rs, store, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if err := tab.Compare(&fakeEqualer{groups: map[string]string{"u1": "g", "n1": "g", "o1": "g"}}, false); err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	tab.Rows[3].Issues = []view.Issue{testIssue{key: "PORT-1"}}
	return tab
}

func TestDisplayCells(t *testing.T) {
	tab := displayTable(t)

	texts := func(row *Row) []string {
		var out []string
		for _, c := range row.DisplayCells() {
			out = append(out, view.PlainText(c))
		}
		return out
	}

	tests := []struct {
		row  int
		want []string
	}{
		{0, []string{"u1", "n1", "o1"}},
		{1, []string{"", "drop-obsolete", "o2"}},
		{2, []string{"v8.2", UnknownMark, "o3"}},
		{3, []string{"", "PORT-1", "o4"}},
		{4, []string{"", UnknownMark, "o5"}},
	}
	for _, tt := range tests {
		if got := texts(tab.Rows[tt.row]); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("row %d display = %q, want %q", tt.row, got, tt.want)
		}
	}

	if sp, ok := tab.Rows[1].DisplayCells()[1].(view.Span); !ok || sp.Class != view.ClassDrop {
		t.Errorf("drop cell should be a drop span, got %#v", tab.Rows[1].DisplayCells()[1])
	}
}

func TestView(t *testing.T) {
	tab := displayTable(t)

	vt, err := tab.View(ViewOptions{
		Columns:   []Column{ColumnIndex, ColumnCommits, ColumnSubject},
		Headers:   true,
		HideLevel: ShowAll,
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}

	if !reflect.DeepEqual(vt.Header, []string{"INDEX", "up", "new", "our", "SUBJECT"}) {
		t.Errorf("unexpected header %v", vt.Header)
	}
	// five rows plus one comment row
	if len(vt.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(vt.Rows))
	}
	if view.PlainText(vt.Rows[0][0]) != "1" {
		t.Errorf("expected index 1, got %q", view.PlainText(vt.Rows[0][0]))
	}
	comment := vt.Rows[3]
	if view.PlainText(comment[4]) != "  first line\n  second line" || view.PlainText(comment[0]) != "" {
		t.Errorf("unexpected comment row %#v", comment)
	}

	vt, err = tab.View(ViewOptions{Columns: []Column{ColumnIndex, ColumnSubject}, HideLevel: HideEqual})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
	if vt.Header != nil || len(vt.Rows) != 5 {
		t.Errorf("expected equal row hidden and no header, got %d rows", len(vt.Rows))
	}
}

func TestView_IndexPadding(t *testing.T) {
	var cs []string
	for i := 0; i < 12; i++ {
		cs = append(cs, fmt.Sprintf("h%d", i), fmt.Sprintf("subject %d", i))
	}
	repo := &fakeRepo{ranges: map[string][]git.Commit{"a..b": commits(cs...)}}
	tab, err := Build([]*ranges.MultiRange{mustRange(t, "a..b", repo, nil)}, nil, repo, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	vt, err := tab.View(ViewOptions{Columns: []Column{ColumnIndex}})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
	if view.PlainText(vt.Rows[0][0]) != "01" || view.PlainText(vt.Rows[11][0]) != "12" {
		t.Errorf("unexpected indexes %q .. %q", view.PlainText(vt.Rows[0][0]), view.PlainText(vt.Rows[11][0]))
	}
}

func TestView_Filter(t *testing.T) {
	tab := displayTable(t)

	tests := []struct {
		expr string
		want []string
	}{
		{`new == "███???███"`, []string{"pending", "unknown"}},
		{`up != none and not all_equal`, []string{"pending"}},
		{`"PORT-1" in issues`, []string{"tracked"}},
		{`"drop" in new or subject == "upstream fix"`, []string{"upstream fix", "dropped"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := filter.Parse(tt.expr)
			if err != nil {
				t.Fatalf("filter.Parse() failed: %v", err)
			}
			vt, err := tab.View(ViewOptions{Columns: []Column{ColumnSubject}, Filter: expr, HideLevel: ShowAll})
			if err != nil {
				t.Fatalf("View() failed: %v", err)
			}
			var got []string
			for _, r := range vt.Rows {
				if s := view.PlainText(r[0]); s != "" && !strings.HasPrefix(s, "  ") {
					got = append(got, s)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}

	expr, err := filter.Parse(`bogus == "x"`)
	if err != nil {
		t.Fatalf("filter.Parse() failed: %v", err)
	}
	if _, err := tab.View(ViewOptions{Filter: expr}); err == nil {
		t.Error("expected error for unknown attribute")
	}
}

func TestParseColumnsAndHideLevel(t *testing.T) {
	cols, err := ParseColumns("index, Commits,subject")
	if err != nil {
		t.Fatalf("ParseColumns() failed: %v", err)
	}
	if !reflect.DeepEqual(cols, []Column{ColumnIndex, ColumnCommits, ColumnSubject}) {
		t.Errorf("ParseColumns() = %v", cols)
	}
	if cols, _ := ParseColumns(""); !reflect.DeepEqual(cols, DefaultColumns) {
		t.Errorf("empty columns should give defaults, got %v", cols)
	}
	if _, err := ParseColumns("index,nope"); err == nil {
		t.Error("expected error for unknown column")
	}

	for in, want := range map[string]HideLevel{"": ShowAll, "HIDE_EQUAL": HideEqual, "hide_checked": HideChecked} {
		got, err := ParseHideLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseHideLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseHideLevel("hide_all"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestAddPortingIssues(t *testing.T) {
	tab := displayTable(t)
	tab.Rows[3].Issues = nil

	tr := &stubTracker{issues: map[string]*stubIssue{
		"EPIC-1": {key: "EPIC-1", desc: "- o4 tracked\n- pending"},
	}}
	if err := tab.AddPortingIssues(context.Background(), tr, []string{"EPIC-1"}); err != nil {
		t.Fatalf("AddPortingIssues() failed: %v", err)
	}

	for _, i := range []int{2, 3} {
		if got := issueKeys(tab.Rows[i].Issues); !reflect.DeepEqual(got, []string{"EPIC-1"}) {
			t.Errorf("row %d issues = %v, want [EPIC-1]", i, got)
		}
	}
	if tab.Rows[0].Issues != nil {
		t.Error("unmentioned row must not get issues")
	}

	if err := tab.AddPortingIssues(context.Background(), tr, []string{"MISSING-1"}); err == nil {
		t.Error("expected error for missing root issue")
	}
}

type stubIssue struct {
	key, desc string
}

func (i *stubIssue) Key() string                                        { return i.key }
func (i *stubIssue) Description() string                                { return i.desc }
func (i *stubIssue) IsCritical() bool                                   { return false }
func (i *stubIssue) IsFixed() bool                                      { return false }
func (i *stubIssue) SubIssues(context.Context) ([]tracker.Issue, error) { return nil, nil }

type stubTracker struct {
	issues map[string]*stubIssue
}

func (s *stubTracker) GetIssue(_ context.Context, key string) (tracker.Issue, error) {
	is, ok := s.issues[key]
	if !ok {
		return nil, fmt.Errorf("issue %s not found", key)
	}
	return is, nil
}
