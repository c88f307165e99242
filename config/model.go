// Package config implements the declarative text configuration format:
// lexing, grammar/value validation (ConfigValidator), and construction of
// the VirtualServer/Location model consumed by the rest of webserv
// (ConfigParser).
package config

import "net"

// VirtualServer is one `server { ... }` block.
type VirtualServer struct {
	BindAddress       net.IP
	Port              int
	ServerName        string
	Root              string
	Index             string
	ClientMaxBodySize int64
	ErrorPages        map[int]string
	Locations         []Location
}

// Location is one `location <pattern> { ... }` block nested in a server.
type Location struct {
	Pattern        string
	AllowedMethods map[string]bool
	Index          string
	Autoindex      bool
	CGIPath        string
	CGIExt         []string
	UploadPath     string
	ReturnURL      string
}

// IsCGI reports whether the location's pattern is a file-extension
// pattern (begins with '.'), i.e. a CGI location rather than a directory
// location.
func (l Location) IsCGI() bool {
	return len(l.Pattern) > 0 && l.Pattern[0] == '.'
}

// IsDirectory reports whether the location's pattern is a path prefix
// (begins with '/').
func (l Location) IsDirectory() bool {
	return len(l.Pattern) > 0 && l.Pattern[0] == '/'
}

// Key identifies a listener group: the (bind address, port) tuple shared
// by one or more virtual servers.
type Key struct {
	Addr string
	Port int
}

func keyOf(v *VirtualServer) Key {
	return Key{Addr: v.BindAddress.String(), Port: v.Port}
}

// Group is a listener group: all virtual servers bound to the same
// (address, port) tuple, multiplexed by their Host header. Default is
// the group's first-declared member, used when no Host matches.
type Group struct {
	Key     Key
	Servers []*VirtualServer
}

// Default returns the listener group's default virtual server: the
// first one declared for this (address, port) tuple.
func (g *Group) Default() *VirtualServer {
	if len(g.Servers) == 0 {
		return nil
	}
	return g.Servers[0]
}

// ByName returns the virtual server in the group whose ServerName equals
// name, or nil if none matches.
func (g *Group) ByName(name string) *VirtualServer {
	for _, s := range g.Servers {
		if s.ServerName == name {
			return s
		}
	}
	return nil
}

// Cluster owns every virtual server for the lifetime of the process and
// groups them into listener groups. It is built once at startup and is
// read-only thereafter; Listener and EventLoop reference it, never own
// a copy.
type Cluster struct {
	Servers []*VirtualServer
	Groups  []*Group
}

// NewCluster groups servers by (bind address, port) in declaration order.
func NewCluster(servers []*VirtualServer) *Cluster {
	c := &Cluster{Servers: servers}
	index := make(map[Key]*Group)
	for _, s := range servers {
		k := keyOf(s)
		g, ok := index[k]
		if !ok {
			g = &Group{Key: k}
			index[k] = g
			c.Groups = append(c.Groups, g)
		}
		g.Servers = append(g.Servers, s)
	}
	return c
}
