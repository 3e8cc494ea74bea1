package meta

import (
	"fmt"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/subject"
)

type frameKind int

const (
	featureFrame frameKind = iota
	dropFrame
)

// frame carries the defaults a group block gives to the commits inside it.
// Commits copy the values when they are created.
type frame struct {
	kind        frameKind
	feature     string
	drop        string
	upstreaming string
}

func dropName(reason string) string {
	if reason == "" {
		return "drop"
	}
	return "drop-" + reason
}

type parser struct {
	store  *Store
	stack  []frame
	commit *CommitMeta
	// group is set while property lines apply to the top frame
	group  bool
	lineNo int
	line   string
	logger logging.Logger
}

// Parse parses metadata file content. The returned store has no backing
// file; use Load for that.
func Parse(content string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	p := &parser{
		store: &Store{
			byKey:   make(map[string]*CommitMeta),
			aliases: make(map[string]string),
			logger:  logger.With("component", "meta"),
		},
		logger: logger.With("component", "meta"),
	}

	for i, raw := range strings.Split(content, "\n") {
		p.lineNo = i + 1
		p.line = strings.TrimRight(raw, " \t\r")
		if err := p.parseLine(); err != nil {
			return nil, err
		}
	}

	if len(p.stack) > 0 {
		p.logger.Debug("meta file ends inside a group block", "depth", len(p.stack))
	}

	return p.store, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.lineNo, Text: p.line, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine() error {
	line := p.line

	switch {
	case line == "" || line[0] == '#':
		return nil

	case strings.HasPrefix(line, "  "):
		return p.property(line[2:])

	case line[0] == '=':
		if p.commit == nil {
			return p.errorf("alias outside of a commit")
		}
		p.store.aliases[subject.Key(line[1:], nil)] = subject.Key(p.commit.Subject, nil)
		return nil

	case strings.HasSuffix(line, ":") && line[0] != '%':
		p.logger.Warn(`"tag:" syntax is deprecated, use "%feature: <name>" or "%drop: <reason>" blocks closed by "%end"`,
			"line", p.lineNo)
		p.commit = nil
		p.group = false
		name := strings.TrimSuffix(line, ":")
		if strings.HasPrefix(name, "drop") {
			reason := strings.TrimPrefix(strings.TrimPrefix(name, "drop"), "-")
			p.stack = []frame{{kind: dropFrame, drop: dropName(reason)}}
		} else {
			p.stack = []frame{{kind: featureFrame, feature: name}}
		}
		return nil

	case line[0] == '%':
		return p.directive(line)

	default:
		return p.subjectLine(line)
	}
}

func (p *parser) directive(line string) error {
	if line == "%end" {
		if len(p.stack) == 0 {
			return p.errorf("%%end without open block")
		}
		p.stack = p.stack[:len(p.stack)-1]
		p.commit = nil
		p.group = false
		return nil
	}

	key, val, ok := strings.Cut(line, ":")
	if !ok {
		return p.errorf("unknown directive")
	}
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)

	var f frame
	switch key {
	case "%feature":
		if val == "" {
			return p.errorf("feature name is empty")
		}
		f = frame{kind: featureFrame, feature: val}
	case "%drop":
		f = frame{kind: dropFrame, drop: dropName(val)}
		if len(p.stack) > 0 {
			f.feature = p.stack[len(p.stack)-1].feature
		}
	default:
		return p.errorf("unknown directive %s", key)
	}

	p.stack = append(p.stack, f)
	p.commit = nil
	p.group = true
	return nil
}

func (p *parser) subjectLine(line string) error {
	key := subject.Key(line, nil)
	if _, exists := p.store.byKey[key]; exists {
		return &DoubleDefinitionError{Line: p.lineNo, Subject: line, Key: key}
	}

	cm := &CommitMeta{Subject: line}
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		cm.Feature = top.feature
		cm.Drop = top.drop
		cm.Upstreaming = top.upstreaming
	}

	p.store.byKey[key] = cm
	p.commit = cm
	p.group = false
	return nil
}

// property handles a two-space indented line
func (p *parser) property(prop string) error {
	switch {
	case p.commit != nil:
		return p.commitProperty(prop)
	case p.group && len(p.stack) > 0:
		top := &p.stack[len(p.stack)-1]
		if top.kind == dropFrame {
			return p.errorf("drop blocks take no properties")
		}
		return p.tagProperty(prop, &top.drop, &top.upstreaming)
	default:
		return p.errorf("property outside of a commit or feature block")
	}
}

func (p *parser) commitProperty(prop string) error {
	if isTagProperty(prop) {
		return p.tagProperty(prop, &p.commit.Drop, &p.commit.Upstreaming)
	}

	if rest, ok := strings.CutPrefix(prop, "ok:"); ok {
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return p.errorf("ok: expects two commit hashes")
		}
		p.commit.Checked = append(p.commit.Checked, Pair{First: fields[0], Second: fields[1]})
		return nil
	}

	if p.commit.Comment != "" {
		p.commit.Comment += "\n"
	}
	p.commit.Comment += prop
	return nil
}

func isTagProperty(prop string) bool {
	return prop == "drop" || strings.HasPrefix(prop, "drop:") || strings.HasPrefix(prop, "upstreaming:")
}

// tagProperty applies "drop", "drop: reason" or "upstreaming: value"
func (p *parser) tagProperty(prop string, drop, upstreaming *string) error {
	if prop == "drop" {
		*drop = "drop"
		return nil
	}

	key, val, ok := strings.Cut(prop, ":")
	if !ok {
		return p.errorf("unknown property")
	}
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	if val == "" {
		return p.errorf("%s: value is empty", key)
	}

	switch key {
	case "drop":
		*drop = dropName(val)
	case "upstreaming":
		*upstreaming = val
	default:
		return p.errorf("unknown property %s", key)
	}
	return nil
}
