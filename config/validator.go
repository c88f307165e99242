package config

import (
	"io"
)

// blockKind is the type of the block currently open, tracked on a stack
// so location blocks cannot nest and server blocks cannot nest inside
// anything.
type blockKind int

const (
	blockServer blockKind = iota
	blockLocation
)

type openBlock struct {
	kind       blockKind
	seen       map[string]bool // directives already set in this block
	pattern    string          // location pattern, if kind == blockLocation
	hasDir     bool            // server has seen a directory location (kind == blockServer)
	locPattern map[string]bool // patterns of locations already closed in this server (kind == blockServer)
}

// Validate lexes and grammar/value-checks the config file, returning a
// *ConfigError on the first violation. It performs no semantic
// cross-checks beyond what a single pass over the token stream can see
// (duplicate server_name within a listener group, for instance, is
// ConfigParser's job once the full VirtualServer set exists).
func Validate(r io.Reader) error {
	lines := logicalLines(r)

	var stack []*openBlock

	for _, ln := range lines {
		if len(ln.Tokens) == 0 {
			continue
		}

		// block header: "server {" or "location <pattern> {"
		if ln.Tokens[len(ln.Tokens)-1] == "{" {
			switch {
			case len(ln.Tokens) == 2 && ln.Tokens[0] == "server":
				if len(stack) != 0 {
					return errf("'server' block cannot be nested", ln.Raw)
				}
				stack = append(stack, &openBlock{kind: blockServer, seen: map[string]bool{}, locPattern: map[string]bool{}})
			case len(ln.Tokens) == 3 && ln.Tokens[0] == "location":
				if len(stack) == 0 || stack[len(stack)-1].kind != blockServer {
					return errf("'location' block must be nested directly inside a 'server' block", ln.Raw)
				}
				pattern := ln.Tokens[1]
				if err := validatePatternShape(pattern, ln.Raw); err != nil {
					return err
				}
				if stack[len(stack)-1].locPattern[pattern] {
					return errf("duplicate location pattern '%s'", ln.Raw, pattern)
				}
				stack = append(stack, &openBlock{kind: blockLocation, seen: map[string]bool{}, pattern: pattern})
			default:
				return errf("Malformed block header", ln.Raw)
			}
			continue
		}

		// block close
		if len(ln.Tokens) == 1 && ln.Tokens[0] == "}" {
			if len(stack) == 0 {
				return errf("unexpected '}' with no open block", ln.Raw)
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := checkMandatory(closed, ln.Raw); err != nil {
				return err
			}
			if closed.kind == blockLocation && len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.locPattern[closed.pattern] = true
				if closed.pattern[0] == '/' {
					parent.hasDir = true
				}
			}
			continue
		}

		// directive
		if len(stack) == 0 {
			return errf("directive outside of any block", ln.Raw)
		}
		cur := stack[len(stack)-1]
		name := ln.Tokens[0]
		args := ln.Tokens[1:]

		table := serverDirectives
		if cur.kind == blockLocation {
			table = locationDirectives
		}

		spec, ok := findDirective(table, name)
		if !ok {
			return errf("Malformed directive", ln.Raw)
		}
		if cur.seen[name] {
			return errf("Duplicate directive: %s", ln.Raw, name)
		}
		if !spec.check(args) {
			return errf("Invalid value for directive: %s", ln.Raw, name)
		}
		cur.seen[name] = true
	}

	if len(stack) != 0 {
		return errf("unexpected end of file: unclosed block", "")
	}

	return nil
}

func validatePatternShape(pattern, raw string) error {
	if pattern == "" || (pattern[0] != '/' && pattern[0] != '.') {
		return errf("location pattern must begin with '/' or '.'", raw)
	}
	return nil
}

func checkMandatory(b *openBlock, raw string) error {
	switch b.kind {
	case blockServer:
		for _, m := range serverMandatory {
			if !b.seen[m] {
				return errf("missing mandatory directive '%s' in server block", raw, m)
			}
		}
		if !b.hasDir {
			return errf("server block must declare at least one directory location", raw)
		}
	case blockLocation:
		mandatory := directoryLocationMandatory
		if b.pattern[0] == '.' {
			mandatory = cgiLocationMandatory
		}
		for _, m := range mandatory {
			if !b.seen[m] {
				return errf("missing mandatory directive '%s' in location block", raw, m)
			}
		}
	}
	return nil
}
