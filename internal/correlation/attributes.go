package correlation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

var (
	// RE2 has no lookahead; a match directly followed by '-' is rejected
	// in code.
	msgIssueRegex    = regexp.MustCompile(`\b[A-Z]+-\d+\b`)
	featureTrailer   = regexp.MustCompile(`(?m)^    Feature: (.*)$`)
	upstreamingTrail = regexp.MustCompile(`(?m)^    Upstreaming: (.*)$`)
)

type logAttributes struct {
	cherry         bool
	issues         []string
	feature        string
	hasFeature     bool
	upstreaming    string
	hasUpstreaming bool
}

func parseLogEntry(msg string) logAttributes {
	var a logAttributes
	a.cherry = strings.Contains(msg, "cherry picked")
	a.issues = messageIssues(msg)

	if m := featureTrailer.FindStringSubmatch(msg); m != nil {
		a.feature, a.hasFeature = m[1], true
	}
	if m := upstreamingTrail.FindStringSubmatch(msg); m != nil {
		a.upstreaming, a.hasUpstreaming = m[1], true
	}
	return a
}

// messageIssues returns the unique tracker keys mentioned in msg ordered by
// their number
func messageIssues(msg string) []string {
	keys := linkedhashset.New()
	for _, loc := range msgIssueRegex.FindAllStringIndex(msg, -1) {
		if loc[1] < len(msg) && msg[loc[1]] == '-' {
			continue
		}
		keys.Add(msg[loc[0]:loc[1]])
	}

	out := make([]string, 0, keys.Size())
	for _, k := range keys.Values() {
		out = append(out, k.(string))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return issueNumber(out[i]) < issueNumber(out[j])
	})
	return out
}

func issueNumber(key string) int {
	_, num, _ := strings.Cut(key, "-")
	n, _ := strconv.Atoi(num)
	return n
}
