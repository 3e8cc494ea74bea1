// Package tracker reads porting issues from an issue tracker and attaches
// them to table rows by commit subject.
package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Issue is the read-only view of a tracker issue
type Issue interface {
	Key() string
	Description() string
	IsCritical() bool
	IsFixed() bool
	SubIssues(ctx context.Context) ([]Issue, error)
}

// Tracker fetches issues by key
type Tracker interface {
	GetIssue(ctx context.Context, key string) (Issue, error)
}

// ParseIssues walks the root issues and all their sub-issues, visiting each
// key once. An issue is attached to a subject when a line of its description
// ends with that subject. The result maps subject to issues in visit order.
func ParseIssues(ctx context.Context, t Tracker, roots []string, subjects []string) (map[string][]Issue, error) {
	if t == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}

	w := &issueWalker{
		subjects: subjects,
		result:   make(map[string][]Issue),
		visited:  linkedhashset.New(),
	}

	for _, key := range roots {
		issue, err := t.GetIssue(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get issue %s: %w", key, err)
		}
		if err := w.visit(ctx, issue); err != nil {
			return nil, err
		}
	}

	return w.result, nil
}

type issueWalker struct {
	subjects []string
	result   map[string][]Issue
	visited  *linkedhashset.Set
}

func (w *issueWalker) visit(ctx context.Context, issue Issue) error {
	if w.visited.Contains(issue.Key()) {
		return nil
	}
	w.visited.Add(issue.Key())

	for _, line := range strings.Split(issue.Description(), "\n") {
		line = strings.TrimSpace(line)
		for _, subj := range w.subjects {
			if strings.HasSuffix(line, subj) {
				w.result[subj] = append(w.result[subj], issue)
			}
		}
	}

	subs, err := issue.SubIssues(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sub-issues of %s: %w", issue.Key(), err)
	}
	for _, sub := range subs {
		if err := w.visit(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys of issues in order
func Keys(issues []Issue) []string {
	keys := make([]string, len(issues))
	for i, is := range issues {
		keys[i] = is.Key()
	}
	return keys
}
