package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"
)

// valueCheck validates the arguments of a directive. It is given the
// tokens following the directive name on its logical line.
type valueCheck func(args []string) bool

type directiveSpec struct {
	name  string
	check valueCheck
}

// reservedPorts mirrors spec.md §4.1's hard-coded reserved set, which is
// excluded from the otherwise-valid [1024, 49151] listen port range.
var reservedPorts = map[int]bool{
	1025: true, 1080: true, 1098: true, 1099: true, 1433: true,
	1521: true, 1723: true, 3306: true, 3389: true, 5432: true, 5900: true,
}

func isReservedPort(p int) bool {
	if reservedPorts[p] {
		return true
	}
	return p >= 6000 && p < 6064
}

// AllowedMethodTokens is the whitelist of HTTP methods a location may
// declare in allow_methods.
var AllowedMethodTokens = map[string]bool{
	"GET": true, "POST": true, "DELETE": true, "HEAD": true, "PUT": true,
	"PATCH": true, "OPTIONS": true, "CONNECT": true, "TRACE": true,
}

// AllowedCGIExtensions is the whitelist of script extensions a CGI
// location may declare in cgi_ext.
var AllowedCGIExtensions = map[string]bool{
	".py": true, ".php": true,
}

func checkPort(args []string) bool {
	if len(args) != 1 {
		return false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return false
	}
	return n >= 1024 && n <= 49151 && !isReservedPort(n)
}

func checkSingleToken(args []string) bool {
	return len(args) == 1 && args[0] != ""
}

func checkIPv4(args []string) bool {
	if len(args) != 1 {
		return false
	}
	ip := net.ParseIP(args[0])
	return ip != nil && ip.To4() != nil
}

func checkNonEmptyPath(args []string) bool {
	return len(args) == 1 && args[0] != ""
}

func checkHTMLIndex(args []string) bool {
	return len(args) == 1 && strings.HasSuffix(args[0], ".html")
}

func checkBodySize(args []string) bool {
	if len(args) != 1 {
		return false
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return false
	}
	return n >= 0 && n <= 10_000_000
}

func checkErrorPage(args []string) bool {
	if len(args) != 2 {
		return false
	}
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return false
	}
	if !strings.HasSuffix(args[1], ".html") {
		return false
	}
	base := filepath.Base(args[1])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	// the digits just before ".html" (e.g. not_found_404.html) must equal
	// the directive's code
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return false
	}
	suffix, err := strconv.Atoi(base[i:])
	if err != nil {
		return false
	}
	return suffix == code
}

func checkMethods(args []string) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		if !AllowedMethodTokens[a] {
			return false
		}
	}
	return true
}

func checkAutoindex(args []string) bool {
	return len(args) == 1 && (args[0] == "on" || args[0] == "off")
}

func checkCGIExt(args []string) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		if !AllowedCGIExtensions[a] {
			return false
		}
	}
	return true
}

func checkURL(args []string) bool {
	return len(args) == 1 && args[0] != ""
}

// serverDirectives is the per-directive grammar table for tokens found
// directly inside a `server { ... }` block.
var serverDirectives = []directiveSpec{
	{"listen", checkPort},
	{"server_name", checkSingleToken},
	{"host", checkIPv4},
	{"root", checkNonEmptyPath},
	{"index", checkHTMLIndex},
	{"client_max_body_size", checkBodySize},
	{"error_page", checkErrorPage},
}

// locationDirectives is the per-directive grammar table for tokens found
// directly inside a `location ... { ... }` block.
var locationDirectives = []directiveSpec{
	{"allow_methods", checkMethods},
	{"index", checkHTMLIndex},
	{"autoindex", checkAutoindex},
	{"cgi_path", checkNonEmptyPath},
	{"cgi_ext", checkCGIExt},
	{"upload_to", checkNonEmptyPath},
	{"return", checkURL},
}

func findDirective(table []directiveSpec, name string) (directiveSpec, bool) {
	for _, d := range table {
		if d.name == name {
			return d, true
		}
	}
	return directiveSpec{}, false
}

// serverMandatory and the two location mandatory sets are the
// close-of-block completeness checks from spec.md §4.1.
var serverMandatory = []string{"listen", "server_name", "host", "root"}
var directoryLocationMandatory = []string{"allow_methods", "index"}
var cgiLocationMandatory = []string{"allow_methods", "cgi_path", "cgi_ext"}
