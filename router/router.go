// Package router implements virtual-server selection, path normalisation,
// and location matching (spec.md §4.6): mapping a parsed request to a
// (virtual server, location, handler) triple.
package router

import (
	"sort"
	"strings"

	"github.com/vallucodes/webserver-sub000/config"
)

// Action identifies which handler family a matched location dispatches to.
type Action int

const (
	ActionGet Action = iota
	ActionPost
	ActionDelete
	ActionCGI
	ActionRedirect
	ActionMethodNotAllowed
)

// Match is the outcome of routing one request: the resolved virtual
// server, the best-matching location (nil if none matched at all, which
// the caller treats as 404), the dispatch action, and -- for the 405
// case -- the Allow header value.
type Match struct {
	VirtualServer *config.VirtualServer
	Location      *config.Location
	Action        Action
	Allow         string
}

// SelectVirtualServer picks the server in group whose server_name equals
// host (port stripped), falling back to the group's default.
func SelectVirtualServer(group *config.Group, host string) *config.VirtualServer {
	name := host
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		name = name[:idx]
	}
	if vs := group.ByName(name); vs != nil {
		return vs
	}
	return group.Default()
}

// NormalizeError enumerates the rejection reasons from path normalisation.
type NormalizeError int

const (
	NormalizeOK NormalizeError = iota
	NormalizeTraversal     // 403
	NormalizeTooLong       // 400
	NormalizeIllegalBytes  // 400
)

const maxPathLength = 2048

// illegalPathBytes is the set from spec.md §4.6: `<>"|?*` plus NUL.
var illegalPathBytes = map[byte]bool{
	'<': true, '>': true, '"': true, '|': true, '?': true, '*': true, 0: true,
}

// Normalize drops query/fragment, collapses repeated slashes, and rejects
// `..` segments, over-length paths, and illegal bytes, per spec.md §4.6.
func Normalize(rawPath string) (clean string, errKind NormalizeError) {
	p := rawPath
	if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}

	if len(p) > maxPathLength {
		return "", NormalizeTooLong
	}
	for i := 0; i < len(p); i++ {
		if illegalPathBytes[p[i]] {
			return "", NormalizeIllegalBytes
		}
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", NormalizeTraversal
		}
	}

	collapsed := collapseSlashes(p)
	return collapsed, NormalizeOK
}

func collapseSlashes(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// MatchLocation implements the exact > extension > prefix precedence with
// longest-pattern tie-break from spec.md §4.6.
func MatchLocation(vs *config.VirtualServer, path string) *config.Location {
	var best *config.Location
	bestRank := -1
	bestLen := -1

	consider := func(loc *config.Location, rank int) {
		if rank > bestRank || (rank == bestRank && len(loc.Pattern) > bestLen) {
			best = loc
			bestRank = rank
			bestLen = len(loc.Pattern)
		}
	}

	for i := range vs.Locations {
		loc := &vs.Locations[i]
		switch {
		case loc.Pattern == path:
			consider(loc, 2)
		case loc.IsCGI() && strings.HasSuffix(path, loc.Pattern):
			consider(loc, 1)
		case loc.IsDirectory() && matchesPrefix(path, loc.Pattern):
			consider(loc, 0)
		}
	}
	return best
}

func matchesPrefix(path, pattern string) bool {
	if !strings.HasPrefix(path, pattern) {
		return false
	}
	if len(path) == len(pattern) {
		return true
	}
	return path[len(pattern)] == '/'
}

// Route resolves (listener group, request) to a dispatch decision, per
// spec.md §4.6. path must already be normalised.
func Route(group *config.Group, host, method, path string) Match {
	vs := SelectVirtualServer(group, host)
	loc := MatchLocation(vs, path)
	if loc == nil {
		return Match{VirtualServer: vs}
	}

	if !loc.AllowedMethods[method] {
		return Match{VirtualServer: vs, Location: loc, Action: ActionMethodNotAllowed, Allow: allowHeader(loc)}
	}

	switch {
	case loc.ReturnURL != "":
		return Match{VirtualServer: vs, Location: loc, Action: ActionRedirect}
	case loc.CGIPath != "" && len(loc.CGIExt) > 0:
		return Match{VirtualServer: vs, Location: loc, Action: ActionCGI}
	case method == "POST" && loc.UploadPath != "":
		return Match{VirtualServer: vs, Location: loc, Action: ActionPost}
	case method == "DELETE" && loc.UploadPath != "":
		return Match{VirtualServer: vs, Location: loc, Action: ActionDelete}
	case method == "GET" || method == "HEAD":
		return Match{VirtualServer: vs, Location: loc, Action: ActionGet}
	default:
		return Match{VirtualServer: vs, Location: loc, Action: ActionMethodNotAllowed, Allow: allowHeader(loc)}
	}
}

func allowHeader(loc *config.Location) string {
	methods := make([]string, 0, len(loc.AllowedMethods))
	for m := range loc.AllowedMethods {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
