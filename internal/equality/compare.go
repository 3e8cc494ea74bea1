// Package equality decides whether two commits carry the same change and
// memoizes the answer per unordered commit pair.
package equality

import (
	"fmt"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/patch"
)

// PatchSource provides the raw material for a comparison
type PatchSource interface {
	// Patch returns the code change only (git show --format=)
	Patch(id string) (string, error)
	// Message returns the full commit message (%B)
	Message(id string) (string, error)
}

// Comparator answers equality questions, consulting the store first
type Comparator struct {
	source PatchSource
	store  Store
	logger logging.Logger
}

// NewComparator creates a comparator over source memoizing into store
func NewComparator(source PatchSource, store Store, logger logging.Logger) (*Comparator, error) {
	if source == nil {
		return nil, fmt.Errorf("patch source cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Comparator{
		source: source,
		store:  store,
		logger: logger.With("component", "comparator"),
	}, nil
}

// AreCommitsEqual compares the code changes of c1 and c2 and, unless
// ignoreMessage is set, their commit messages. Dates and authors are never
// compared.
func (c *Comparator) AreCommitsEqual(c1, c2 string, ignoreMessage bool) (bool, error) {
	if c1 == c2 {
		return true, nil
	}

	v, err := c.Verdict(c1, c2)
	if err != nil {
		return false, err
	}

	return v.Holds(ignoreMessage), nil
}

// Verdict returns the stored verdict for the pair, computing and storing it
// on a miss
func (c *Comparator) Verdict(c1, c2 string) (Verdict, error) {
	if c1 == c2 {
		return FullEqual, nil
	}

	v, ok, err := c.store.Get(c1, c2)
	if err != nil {
		return 0, fmt.Errorf("failed to read equality cache: %w", err)
	}
	if ok {
		return v, nil
	}

	v, err = c.compute(c1, c2)
	if err != nil {
		return 0, err
	}

	if err := c.store.Put(c1, c2, v); err != nil {
		return 0, fmt.Errorf("failed to write equality cache: %w", err)
	}

	c.logger.Debug("compared commits", "c1", c1, "c2", c2, "verdict", v.String())
	return v, nil
}

func (c *Comparator) compute(c1, c2 string) (Verdict, error) {
	p1, err := c.source.Patch(c1)
	if err != nil {
		return 0, fmt.Errorf("failed to get patch of %s: %w", c1, err)
	}
	p2, err := c.source.Patch(c2)
	if err != nil {
		return 0, fmt.Errorf("failed to get patch of %s: %w", c2, err)
	}

	if patch.Normalize(p1, true) != patch.Normalize(p2, true) {
		return Differs, nil
	}

	m1, err := c.source.Message(c1)
	if err != nil {
		return 0, fmt.Errorf("failed to get message of %s: %w", c1, err)
	}
	m2, err := c.source.Message(c2)
	if err != nil {
		return 0, fmt.Errorf("failed to get message of %s: %w", c2, err)
	}

	if m1 == m2 {
		return FullEqual, nil
	}
	return Equal, nil
}
