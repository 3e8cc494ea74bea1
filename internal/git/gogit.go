package git

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

const (
	// ShortHashLength is the abbreviation used by the go-git backend
	ShortHashLength = 7

	emailDateFormat = "Mon, 2 Jan 2006 15:04:05 -0700"
)

// GoGitRepository answers queries in-process with go-git. It does not
// implement Mutator.
type GoGitRepository struct {
	repo     *git.Repository
	location Location
	logger   logging.Logger
}

// OpenGoGit opens the repository at loc
func OpenGoGit(loc Location, logger logging.Logger) (*GoGitRepository, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	repo, err := git.PlainOpenWithOptions(loc.Root, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", loc.Root, err)
	}

	return &GoGitRepository{
		repo:     repo,
		location: loc,
		logger:   logger.With("component", "git_gogit"),
	}, nil
}

func (g *GoGitRepository) commit(rev string) (*object.Commit, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	commit, err := g.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object %s: %w", rev, err)
	}
	return commit, nil
}

func shortHash(h plumbing.Hash) string {
	return h.String()[:ShortHashLength]
}

// releaseTags maps commit hashes to the release tag pointing at them
func (g *GoGitRepository) releaseTags() (map[plumbing.Hash]string, error) {
	refs, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer refs.Close()

	tags := make(map[plumbing.Hash]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := releaseTag(ref.Name().Short())
		if name == "" {
			return nil
		}

		target := ref.Hash()
		tagObj, err := g.repo.TagObject(target)
		switch {
		case err == nil:
			c, err := tagObj.Commit()
			if err != nil {
				g.logger.Debug("tag does not point to a commit", "tag", name, "error", err)
				return nil
			}
			target = c.Hash
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// lightweight tag
		default:
			return err
		}

		if existing, ok := tags[target]; !ok || name < existing {
			tags[target] = name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return tags, nil
}

// Log walks top in committer-time order and drops everything reachable from
// base, the same set "git log base..top" selects
func (g *GoGitRepository) Log(base, top string) ([]Commit, error) {
	baseCommit, err := g.commit(base)
	if err != nil {
		return nil, err
	}
	topCommit, err := g.commit(top)
	if err != nil {
		return nil, err
	}

	excluded := make(map[plumbing.Hash]bool)
	baseIter, err := g.repo.Log(&git.LogOptions{From: baseCommit.Hash})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", base, err)
	}
	err = baseIter.ForEach(func(c *object.Commit) error {
		excluded[c.Hash] = true
		return nil
	})
	baseIter.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", base, err)
	}

	tags, err := g.releaseTags()
	if err != nil {
		return nil, err
	}

	topIter, err := g.repo.Log(&git.LogOptions{From: topCommit.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", top, err)
	}
	defer topIter.Close()

	var newestFirst []Commit
	err = topIter.ForEach(func(c *object.Commit) error {
		if excluded[c.Hash] {
			return nil
		}
		newestFirst = append(newestFirst, Commit{
			Hash:    shortHash(c.Hash),
			Date:    c.Author.When.Format(goDateFormat),
			Author:  c.Author.Name,
			Subject: subjectLine(c.Message),
			InTag:   tags[c.Hash],
		})
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk %s..%s: %w", base, top, err)
	}

	commits := make([]Commit, len(newestFirst))
	for i, c := range newestFirst {
		commits[len(newestFirst)-1-i] = c
	}
	propagateTags(commits)

	g.logger.Debug("listed commits", "range", base+".."+top, "count", len(commits))
	return commits, nil
}

// subjectLine joins the first paragraph of a message like git's %s
func subjectLine(message string) string {
	para := strings.SplitN(strings.TrimLeft(message, "\n"), "\n\n", 2)[0]
	return strings.Join(strings.Fields(strings.ReplaceAll(para, "\n", " ")), " ")
}

// patchOf diffs a commit against its first parent, or the empty tree for a
// root commit
func (g *GoGitRepository) patchOf(commit *object.Commit) (string, error) {
	var patch *object.Patch

	parentIter := commit.Parents()
	defer parentIter.Close()

	parent, err := parentIter.Next()
	if err != nil {
		if !errors.Is(err, object.ErrParentNotFound) && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to get parent commit: %w", err)
		}
		commitTree, err := commit.Tree()
		if err != nil {
			return "", fmt.Errorf("failed to get commit tree: %w", err)
		}
		changes, err := object.DiffTree(nil, commitTree)
		if err != nil {
			return "", fmt.Errorf("failed to diff trees for root commit: %w", err)
		}
		patch, err = changes.Patch()
		if err != nil {
			return "", fmt.Errorf("failed to generate patch for root commit: %w", err)
		}
	} else {
		patch, err = parent.Patch(commit)
		if err != nil {
			return "", fmt.Errorf("failed to generate patch: %w", err)
		}
	}

	return patch.String(), nil
}

func (g *GoGitRepository) Patch(id string) (string, error) {
	commit, err := g.commit(id)
	if err != nil {
		return "", err
	}
	return g.patchOf(commit)
}

func (g *GoGitRepository) EmailPatch(id string) (string, error) {
	commit, err := g.commit(id)
	if err != nil {
		return "", err
	}
	patch, err := g.patchOf(commit)
	if err != nil {
		return "", err
	}

	subject := subjectLine(commit.Message)
	body := ""
	if parts := strings.SplitN(strings.TrimLeft(commit.Message, "\n"), "\n\n", 2); len(parts) == 2 {
		body = strings.TrimSpace(parts[1])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From %s Mon Sep 17 00:00:00 2001\n", commit.Hash)
	fmt.Fprintf(&b, "From: %s <%s>\n", commit.Author.Name, commit.Author.Email)
	fmt.Fprintf(&b, "Date: %s\n", commit.Author.When.Format(emailDateFormat))
	fmt.Fprintf(&b, "Subject: [PATCH] %s\n\n", subject)
	if body != "" {
		b.WriteString(body + "\n")
	}
	b.WriteString("\n")
	b.WriteString(patch)
	return b.String(), nil
}

func (g *GoGitRepository) Message(id string) (string, error) {
	commit, err := g.commit(id)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(commit.Message), nil
}

func (g *GoGitRepository) LogEntry(id string) (string, error) {
	commit, err := g.commit(id)
	if err != nil {
		return "", err
	}
	return commit.String(), nil
}

func (g *GoGitRepository) ShortHash(rev string) (string, error) {
	commit, err := g.commit(rev)
	if err != nil {
		return "", err
	}
	return shortHash(commit.Hash), nil
}

func (g *GoGitRepository) CommonDir() (string, error) {
	return g.location.CommonDir, nil
}
