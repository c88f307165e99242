package router

import (
	"testing"

	"github.com/vallucodes/webserver-sub000/config"
)

func vsFixture() *config.VirtualServer {
	return &config.VirtualServer{
		ServerName: "localhost",
		Root:       "www",
		Locations: []config.Location{
			{Pattern: "/", AllowedMethods: map[string]bool{"GET": true, "HEAD": true}, Index: "index.html"},
			{Pattern: "/uploads", AllowedMethods: map[string]bool{"POST": true, "DELETE": true}, UploadPath: "www/uploads"},
			{Pattern: ".py", AllowedMethods: map[string]bool{"GET": true, "POST": true}, CGIPath: "cgi-bin", CGIExt: []string{".py"}},
			{Pattern: "/old", AllowedMethods: map[string]bool{"GET": true}, ReturnURL: "/new"},
		},
	}
}

func groupFixture() *config.Group {
	vs := vsFixture()
	return &config.Group{Servers: []*config.VirtualServer{vs}}
}

func TestNormalizeDropsQueryAndFragment(t *testing.T) {
	clean, err := Normalize("/a/b?x=1#frag")
	if err != NormalizeOK || clean != "/a/b" {
		t.Fatalf("got %q, err %v", clean, err)
	}
}

func TestNormalizeCollapsesSlashes(t *testing.T) {
	clean, err := Normalize("/a//b///c")
	if err != NormalizeOK || clean != "/a/b/c" {
		t.Fatalf("got %q, err %v", clean, err)
	}
}

func TestNormalizeRejectsTraversal(t *testing.T) {
	if _, err := Normalize("/a/../etc/passwd"); err != NormalizeTraversal {
		t.Fatalf("expected traversal rejection, got %v", err)
	}
}

func TestNormalizeRejectsOverLength(t *testing.T) {
	long := "/" + string(make([]byte, 2049))
	if _, err := Normalize(long); err != NormalizeTooLong {
		t.Fatalf("expected too-long rejection, got %v", err)
	}
}

func TestNormalizeRejectsIllegalBytes(t *testing.T) {
	if _, err := Normalize("/a<b"); err != NormalizeIllegalBytes {
		t.Fatalf("expected illegal byte rejection, got %v", err)
	}
}

func TestMatchLocationExactBeatsPrefix(t *testing.T) {
	vs := vsFixture()
	vs.Locations = append(vs.Locations, config.Location{Pattern: "/uploads/x", AllowedMethods: map[string]bool{"GET": true}})
	loc := MatchLocation(vs, "/uploads/x")
	if loc.Pattern != "/uploads/x" {
		t.Fatalf("expected exact match, got %q", loc.Pattern)
	}
}

func TestMatchLocationExtensionBeatsPrefix(t *testing.T) {
	vs := vsFixture()
	loc := MatchLocation(vs, "/cgi-bin/script.py")
	if loc == nil || loc.Pattern != ".py" {
		t.Fatalf("expected .py extension match, got %+v", loc)
	}
}

func TestMatchLocationPrefixRequiresBoundary(t *testing.T) {
	vs := vsFixture()
	loc := MatchLocation(vs, "/uploadsxx")
	if loc != nil && loc.Pattern == "/uploads" {
		t.Fatalf("expected /uploads not to match /uploadsxx")
	}
}

func TestMatchLocationLongestPrefixWins(t *testing.T) {
	vs := vsFixture()
	vs.Locations = append(vs.Locations, config.Location{Pattern: "/uploads/sub", AllowedMethods: map[string]bool{"GET": true}})
	loc := MatchLocation(vs, "/uploads/sub/file")
	if loc.Pattern != "/uploads/sub" {
		t.Fatalf("expected longest prefix /uploads/sub, got %q", loc.Pattern)
	}
}

func TestRouteRedirect(t *testing.T) {
	m := Route(groupFixture(), "localhost", "GET", "/old")
	if m.Action != ActionRedirect {
		t.Fatalf("expected redirect action, got %v", m.Action)
	}
}

func TestRouteCGI(t *testing.T) {
	m := Route(groupFixture(), "localhost", "GET", "/cgi-bin/x.py")
	if m.Action != ActionCGI {
		t.Fatalf("expected cgi action, got %v", m.Action)
	}
}

func TestRouteMethodNotAllowed(t *testing.T) {
	m := Route(groupFixture(), "localhost", "PUT", "/")
	if m.Action != ActionMethodNotAllowed || m.Allow != "GET, HEAD" {
		t.Fatalf("expected 405 with Allow header, got %v %q", m.Action, m.Allow)
	}
}

func TestRouteGet(t *testing.T) {
	m := Route(groupFixture(), "localhost", "GET", "/")
	if m.Action != ActionGet {
		t.Fatalf("expected get action, got %v", m.Action)
	}
}

func TestRouteFallsBackToDefaultServer(t *testing.T) {
	m := Route(groupFixture(), "unknown-host", "GET", "/")
	if m.VirtualServer.ServerName != "localhost" {
		t.Fatalf("expected fallback to default server, got %q", m.VirtualServer.ServerName)
	}
}
