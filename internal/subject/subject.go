// Package subject derives correlation keys from commit subject lines.
package subject

import (
	"regexp"
	"strings"
)

// trackerSuffix matches the run of " #ABCDE-12345" references that
// cherry-pick tooling appends to subjects.
var trackerSuffix = regexp.MustCompile(`(\s*#[A-Z]{3,5}-\d{3,6})+$`)

// AliasLookup resolves a renamed subject key to the key it is known under
type AliasLookup interface {
	AliasToKey(key string) string
}

// Key returns the normalized lookup key for a commit subject.
// When aliases is non-nil the stripped key is passed through it.
func Key(subject string, aliases AliasLookup) string {
	key := strings.TrimSpace(subject)
	key = trackerSuffix.ReplaceAllString(key, "")

	if aliases == nil {
		return key
	}

	return aliases.AliasToKey(key)
}

// AliasMap is a plain map based AliasLookup
type AliasMap map[string]string

// AliasToKey returns the registered target for key, or key itself
func (m AliasMap) AliasToKey(key string) string {
	if target, ok := m[key]; ok {
		return target
	}
	return key
}
