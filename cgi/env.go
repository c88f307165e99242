// Package cgi implements the CgiExecutor: environment construction, child
// process spawning with bidirectional pipes and a wall-clock timeout, and
// parsing of the CGI response header block (spec.md §4.8).
package cgi

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// buildEnv constructs the RFC 3875 environment for one CGI invocation,
// grounded on the variable set a reverse-proxying CGI handler assembles
// for its script.
func buildEnv(vs *config.VirtualServer, req *request.Request, scriptPath, pathInfo string) []string {
	absScript, err := filepath.Abs(scriptPath)
	if err != nil {
		absScript = scriptPath
	}

	env := map[string]string{
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_PROTOCOL":   "HTTP/1.1",
		"REQUEST_METHOD":    req.Method,
		"SCRIPT_NAME":       strings.TrimSuffix(req.Path, pathInfo),
		"SCRIPT_FILENAME":   absScript,
		"PATH_INFO":         pathInfo,
		"QUERY_STRING":      req.Query,
		"CONTENT_TYPE":      req.Headers.Get("content-type"),
		"CONTENT_LENGTH":    strconv.Itoa(len(req.Body)),
		"SERVER_SOFTWARE":   "webserv/1.0",
		"SERVER_NAME":       vs.ServerName,
		"SERVER_PORT":       strconv.Itoa(vs.Port),
		"REMOTE_ADDR":       "127.0.0.1",
		"REMOTE_HOST":       "localhost",
		"PATH":              "/usr/bin:/bin:/usr/local/bin",
	}
	if pathInfo != "" {
		env["PATH_TRANSLATED"] = scriptPath + pathInfo
	}
	if cl := req.Headers.Get("content-length"); cl != "" {
		env["CONTENT_LENGTH"] = cl
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
