package equality

import "fmt"

// Verdict is the memoized outcome of comparing two commits
type Verdict int

const (
	// Equal means the code changes are equal, commit messages may differ
	Equal Verdict = iota + 1
	// Differs means the code changes are different
	Differs
	// FullEqual means both code changes and commit messages are equal
	FullEqual
)

var verdictNames = map[Verdict]string{
	Equal:     "EQUAL",
	Differs:   "DIFFERS",
	FullEqual: "FULL_EQUAL",
}

// String returns the name used in the backing stores
func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// ParseVerdict converts a stored verdict name back to a Verdict
func ParseVerdict(name string) (Verdict, error) {
	for v, n := range verdictNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", name)
}

// Holds reports whether the verdict makes two commits equal. EQUAL only
// counts when commit messages are ignored.
func (v Verdict) Holds(ignoreMessage bool) bool {
	return v == FullEqual || (ignoreMessage && v == Equal)
}

// Pair is an unordered pair of commit identifiers stored in canonical order
type Pair struct {
	First  string
	Second string
}

// SortedPair returns the canonical pair with the lexicographically smaller id first
func SortedPair(a, b string) Pair {
	if a <= b {
		return Pair{First: a, Second: b}
	}
	return Pair{First: b, Second: a}
}
