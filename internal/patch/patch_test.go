package patch

import (
	"errors"
	"strings"
	"testing"
)

const patchA = `From 1111111111111111111111111111111111111111 Mon Sep 17 00:00:00 2001
From: Test Author <test@example.com>
Date: Tue, 4 Feb 2020 10:11:12 +0300
Subject: [PATCH] fix bug

---
 main.c | 2 +-
 1 file changed, 1 insertion(+), 1 deletion(-)

diff --git a/main.c b/main.c
index 3b18e51..a042389 100644
--- a/main.c
+++ b/main.c
@@ -10,7 +10,7 @@ int main(void)
 {
-    return 1;
+    return 0;
 }
`

func rebased(p string) string {
	r := strings.NewReplacer(
		"1111111111111111111111111111111111111111", "2222222222222222222222222222222222222222",
		"Tue, 4 Feb 2020 10:11:12 +0300", "Wed, 5 Feb 2020 08:00:01 +0100",
		"index 3b18e51..a042389", "index 9c1f0e2..77ab001",
		"@@ -10,7 +10,7 @@", "@@ -42,7 +42,7 @@",
	)
	return r.Replace(p)
}

func TestNormalize_HidesVolatileLines(t *testing.T) {
	other := rebased(patchA)
	if other == patchA {
		t.Fatal("fixture did not change")
	}

	if Normalize(patchA, false) != Normalize(other, false) {
		t.Errorf("expected equal normalized patches:\n%s\n---\n%s", Normalize(patchA, false), Normalize(other, false))
	}
}

func TestNormalize_KeepsCodeDifferences(t *testing.T) {
	other := strings.Replace(patchA, "+    return 0;", "+    return 2;", 1)

	if Normalize(patchA, true) == Normalize(other, true) {
		t.Error("expected patches with different code to stay different")
	}
}

func TestNormalize_Placeholders(t *testing.T) {
	got := Normalize("commit abcdef\nDate:   Tue Feb 4 10:11:12 2020 +0300\nindex 1..2\n@@ -1 +1 @@ ctx\n", false)
	want := "commit <some commit>\nDate: <some date>\nindex <some index>\n@@ <some lines> @@ ctx\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalize_FromOnlyAtStart(t *testing.T) {
	got := Normalize("x\nFrom abc\n", false)
	if got != "x\nFrom abc\n" {
		t.Errorf("From line not at start must be kept, got %q", got)
	}
}

func TestNormalize_BlankLineHunks(t *testing.T) {
	raw := " a\n+\n-\n+b\n"

	if got := Normalize(raw, true); got != " a\n+b\n" {
		t.Errorf("expected blank insert/delete lines dropped, got %q", got)
	}
	if got := Normalize(raw, false); got != raw {
		t.Errorf("expected blank lines kept, got %q", got)
	}
}

func TestRestoreEdited(t *testing.T) {
	filtered := Normalize(patchA, false)
	edited := strings.Replace(filtered, "+    return 0;", "+    return 0; /* ok */", 1)

	restored, err := RestoreEdited(patchA, filtered, edited)
	if err != nil {
		t.Fatalf("RestoreEdited failed: %v", err)
	}

	want := strings.Replace(patchA, "+    return 0;", "+    return 0; /* ok */", 1)
	if restored != want {
		t.Errorf("restored patch mismatch:\n%s\nwant:\n%s", restored, want)
	}
}

func TestRestoreEdited_LostPlaceholder(t *testing.T) {
	filtered := Normalize(patchA, false)
	edited := strings.Replace(filtered, "@@ <some lines> @@", "@@ -1 +1 @@", 1)

	_, err := RestoreEdited(patchA, filtered, edited)
	if !errors.Is(err, ErrUnparseableEdit) {
		t.Errorf("expected ErrUnparseableEdit, got %v", err)
	}
}

func TestUnifiedDiff(t *testing.T) {
	text, err := UnifiedDiff("a\nb\n", "a\nc\n", "left", "right")
	if err != nil {
		t.Fatalf("UnifiedDiff failed: %v", err)
	}
	if !strings.Contains(text, "-b") || !strings.Contains(text, "+c") {
		t.Errorf("unexpected diff output:\n%s", text)
	}

	same, err := UnifiedDiff("a\n", "a\n", "left", "right")
	if err != nil {
		t.Fatalf("UnifiedDiff failed: %v", err)
	}
	if same != "" {
		t.Errorf("expected empty diff for equal input, got %q", same)
	}
}
