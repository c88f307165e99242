package nettransport

import (
	"testing"

	"github.com/vallucodes/webserver-sub000/config"
)

func TestResolveMaxBodyFallsBackToDefaultServer(t *testing.T) {
	vs := &config.VirtualServer{ServerName: "localhost", ClientMaxBodySize: 4096}
	group := &config.Group{Servers: []*config.VirtualServer{vs}}
	c := NewConnectionBuffer(0, "127.0.0.1:1234", group, 0)

	if got := c.ResolveMaxBody("unknown-host"); got != 4096 {
		t.Fatalf("expected fallback to default server's cap 4096, got %d", got)
	}
	if got := c.ResolveMaxBody("localhost"); got != 4096 {
		t.Fatalf("expected exact match's cap 4096, got %d", got)
	}
	if got := c.ResolveMaxBody("localhost:8080"); got != 4096 {
		t.Fatalf("expected Host port suffix to be stripped before matching, got %d", got)
	}
}

func TestNewConnectionBufferStartsInReceivingState(t *testing.T) {
	group := &config.Group{Servers: []*config.VirtualServer{{}}}
	c := NewConnectionBuffer(3, "127.0.0.1:1", group, 0)
	if c.State != StateReceiving || !c.DataValid || !c.KeepAlive {
		t.Fatalf("unexpected initial state: %+v", c)
	}
	if c.ID == "" {
		t.Fatalf("expected a generated connection ID")
	}
}
