package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
)

// Parse builds the VirtualServer list from a config that has already
// passed Validate. It assumes grammar and value validity; callers must
// run Validate first (ConfigParser "runs only after validation
// succeeds," per spec.md §4.2).
func Parse(r io.Reader) ([]*VirtualServer, error) {
	lines := logicalLines(r)

	var servers []*VirtualServer
	var cur *VirtualServer
	var curLoc *Location
	inLocation := false

	for _, ln := range lines {
		if len(ln.Tokens) == 0 {
			continue
		}

		if ln.Tokens[len(ln.Tokens)-1] == "{" {
			if ln.Tokens[0] == "server" {
				cur = &VirtualServer{ErrorPages: map[int]string{}}
				continue
			}
			// location header
			loc := Location{Pattern: ln.Tokens[1], AllowedMethods: map[string]bool{}}
			curLoc = &loc
			inLocation = true
			continue
		}

		if len(ln.Tokens) == 1 && ln.Tokens[0] == "}" {
			if inLocation {
				cur.Locations = append(cur.Locations, *curLoc)
				curLoc = nil
				inLocation = false
			} else if cur != nil {
				servers = append(servers, cur)
				cur = nil
			}
			continue
		}

		name := ln.Tokens[0]
		args := ln.Tokens[1:]

		if inLocation {
			if err := applyLocationDirective(curLoc, name, args); err != nil {
				return nil, err
			}
			continue
		}
		if err := applyServerDirective(cur, name, args); err != nil {
			return nil, err
		}
	}

	return servers, nil
}

func applyServerDirective(v *VirtualServer, name string, args []string) error {
	switch name {
	case "listen":
		port, _ := strconv.Atoi(args[0])
		v.Port = port
	case "server_name":
		v.ServerName = args[0]
	case "host":
		v.BindAddress = net.ParseIP(args[0])
	case "root":
		v.Root = args[0]
	case "index":
		v.Index = args[0]
	case "client_max_body_size":
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing client_max_body_size: %w", err)
		}
		v.ClientMaxBodySize = n
	case "error_page":
		code, _ := strconv.Atoi(args[0])
		v.ErrorPages[code] = args[1]
	}
	return nil
}

func applyLocationDirective(l *Location, name string, args []string) error {
	switch name {
	case "allow_methods":
		for _, m := range args {
			l.AllowedMethods[m] = true
		}
	case "index":
		l.Index = args[0]
	case "autoindex":
		l.Autoindex = args[0] == "on"
	case "cgi_path":
		l.CGIPath = args[0]
	case "cgi_ext":
		l.CGIExt = append(l.CGIExt, args...)
	case "upload_to":
		l.UploadPath = args[0]
	case "return":
		l.ReturnURL = args[0]
	}
	return nil
}

// LoadCluster validates then parses the config file at path, returning a
// ready Cluster or the first ConfigError/system error encountered. The
// file is read twice, once for each pass, matching spec.md §4.2's
// "ConfigParser ... re-reads the file" design.
func LoadCluster(path string) (*Cluster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := Validate(f); err != nil {
		return nil, err
	}

	f2, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f2.Close()
	servers, err := Parse(f2)
	if err != nil {
		return nil, err
	}

	if err := crossCheck(servers); err != nil {
		return nil, err
	}

	return NewCluster(servers), nil
}

// crossCheck enforces the invariants that require seeing the whole
// server set at once: server_name uniqueness within a listener group
// (spec.md §3's "Invariants").
func crossCheck(servers []*VirtualServer) error {
	seen := map[Key]map[string]bool{}
	for _, s := range servers {
		k := keyOf(s)
		if seen[k] == nil {
			seen[k] = map[string]bool{}
		}
		if seen[k][s.ServerName] {
			return &ConfigError{Reason: fmt.Sprintf(
				"duplicate server_name %q for listener group %s:%d", s.ServerName, k.Addr, k.Port)}
		}
		seen[k][s.ServerName] = true
	}
	return nil
}
