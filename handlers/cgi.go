package handlers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vallucodes/webserver-sub000/cgi"
	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// CGI resolves the script for req.Path under loc.CGIPath and dispatches to
// the CgiExecutor, falling back to serving the file statically if its
// extension isn't in loc.CGIExt (spec.md §4.7).
func CGI(vs *config.VirtualServer, loc *config.Location, req *request.Request) *request.Response {
	scriptPath := filepath.Join(loc.CGIPath, strings.TrimPrefix(req.Path, "/"))

	if _, err := os.Stat(scriptPath); err != nil {
		return ErrorResponse(vs, 404)
	}

	ext := strings.ToLower(filepath.Ext(scriptPath))
	allowed := false
	for _, e := range loc.CGIExt {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return serveFile(vs, scriptPath)
	}

	resp := cgi.Run(vs, loc, req, scriptPath)
	if req.Method == "HEAD" {
		resp.NoBody = true
	}
	return resp
}
