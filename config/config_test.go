package config

import (
	"strings"
	"testing"
)

const validConfig = `
server {
    listen 8080
    server_name localhost
    host 127.0.0.1
    root www
    index index.html
    client_max_body_size 1000000
    error_page 404 www/errors/not_found_404.html
    location / {
        allow_methods GET HEAD
        index index.html
    }
    location /uploads {
        allow_methods POST DELETE
        index index.html
        upload_to www/uploads
    }
    location .py {
        allow_methods GET POST
        cgi_path /usr/bin/python3
        cgi_ext .py
    }
}
`

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := Validate(strings.NewReader(validConfig)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	// "re-validating the same config is a no-op" (spec.md §8)
	if err := Validate(strings.NewReader(validConfig)); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := Validate(strings.NewReader(validConfig)); err != nil {
		t.Fatalf("second pass: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]string{
		"bad port": `
server {
    listen 80
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"reserved port": `
server {
    listen 3306
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"bad ip": `
server {
    listen 8080
    server_name x
    host not-an-ip
    root www
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"duplicate directive": `
server {
    listen 8080
    listen 8081
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"unknown directive": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    frobnicate yes
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"missing mandatory": `
server {
    listen 8080
    server_name x
    root www
    location / {
        allow_methods GET
        index index.html
    }
}`,
		"no directory location": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    location .py {
        allow_methods GET
        cgi_path /usr/bin/python3
        cgi_ext .py
    }
}`,
		"nested location": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
        location /inner {
            allow_methods GET
        }
    }
}`,
		"duplicate pattern": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
    location / {
        allow_methods POST
        index index.html
    }
}`,
		"unclosed block": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
`,
		"stray close brace": `
}
server {
    listen 8080
}`,
		"bad cgi ext": `
server {
    listen 8080
    server_name x
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
    location .rb {
        allow_methods GET
        cgi_path /usr/bin/ruby
        cgi_ext .rb
    }
}`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if err := Validate(strings.NewReader(src)); err == nil {
				t.Fatalf("expected an error for case %q", name)
			}
		})
	}
}

func TestParseBuildsVirtualServer(t *testing.T) {
	if err := Validate(strings.NewReader(validConfig)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	servers, err := Parse(strings.NewReader(validConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}
	s := servers[0]
	if s.Port != 8080 || s.ServerName != "localhost" || s.Root != "www" {
		t.Fatalf("unexpected server fields: %+v", s)
	}
	if len(s.Locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(s.Locations))
	}
	if s.ErrorPages[404] != "www/errors/not_found_404.html" {
		t.Fatalf("expected error page mapping, got %+v", s.ErrorPages)
	}

	root := s.Locations[0]
	if !root.IsDirectory() || !root.AllowedMethods["GET"] {
		t.Fatalf("unexpected root location: %+v", root)
	}

	cgi := s.Locations[2]
	if !cgi.IsCGI() || cgi.CGIPath == "" {
		t.Fatalf("unexpected cgi location: %+v", cgi)
	}
}

func TestClusterGroupsByBindAddressAndPort(t *testing.T) {
	const twoServers = `
server {
    listen 8080
    server_name a
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}
server {
    listen 8080
    server_name b
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}
server {
    listen 9090
    server_name c
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}
`
	if err := Validate(strings.NewReader(twoServers)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	servers, err := Parse(strings.NewReader(twoServers))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cl := NewCluster(servers)
	if len(cl.Groups) != 2 {
		t.Fatalf("expected 2 listener groups, got %d", len(cl.Groups))
	}
	for _, g := range cl.Groups {
		if g.Key.Port == 8080 && len(g.Servers) != 2 {
			t.Fatalf("expected 2 servers in :8080 group, got %d", len(g.Servers))
		}
	}
}

func TestCrossCheckRejectsDuplicateServerNameInGroup(t *testing.T) {
	const dup = `
server {
    listen 8080
    server_name same
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}
server {
    listen 8080
    server_name same
    host 127.0.0.1
    root www
    location / {
        allow_methods GET
        index index.html
    }
}
`
	if err := Validate(strings.NewReader(dup)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	servers, err := Parse(strings.NewReader(dup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := crossCheck(servers); err == nil {
		t.Fatalf("expected duplicate server_name to be rejected")
	}
}
