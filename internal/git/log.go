package git

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DateFormat is the git --date format of Commit.Date
	DateFormat = "%d.%m.%y %H:%M"
	// goDateFormat renders the same layout from a time.Time
	goDateFormat = "02.01.06 15:04"

	logFieldSeparator = "$%^@"
)

var releaseTagRegex = regexp.MustCompile(`^v([0-9]+\.)*[0-9]+$`)

// logPrettyFormat yields hash, author date, author name, decorations and subject
var logPrettyFormat = strings.Join([]string{"%h", "%ad", "%an", "%D", "%s"}, logFieldSeparator)

// parseLogOutput parses "git log --pretty=format:<logPrettyFormat>" output.
// A line with an unexpected number of fields fails the whole listing.
func parseLogOutput(out string) ([]Commit, error) {
	var commits []Commit
	for i, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, logFieldSeparator, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected git log line %d: %q", i+1, line)
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Date:    fields[1],
			Author:  fields[2],
			InTag:   releaseTagFromDecoration(fields[3]),
			Subject: fields[4],
		})
	}
	propagateTags(commits)
	return commits, nil
}

// releaseTagFromDecoration returns the first "tag: X" decoration when X is a
// release tag, otherwise ""
func releaseTagFromDecoration(decoration string) string {
	for _, part := range strings.Split(decoration, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "tag:") {
			continue
		}
		return releaseTag(strings.TrimSpace(strings.TrimPrefix(part, "tag:")))
	}
	return ""
}

func releaseTag(name string) string {
	if releaseTagRegex.MatchString(name) {
		return name
	}
	return ""
}

// propagateTags gives every untagged commit the tag of the nearest newer
// tagged commit. commits are ordered oldest first.
func propagateTags(commits []Commit) {
	current := ""
	for i := len(commits) - 1; i >= 0; i-- {
		if commits[i].InTag != "" {
			current = commits[i].InTag
			continue
		}
		commits[i].InTag = current
	}
}
