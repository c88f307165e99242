package handlers

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// Delete removes a previously uploaded file. reqPath must begin with
// /uploads/, per spec.md §4.7.
func Delete(vs *config.VirtualServer, loc *config.Location, reqPath string) *request.Response {
	if loc.UploadPath == "" {
		return ErrorResponse(vs, 403)
	}
	if !strings.HasPrefix(reqPath, "/uploads/") {
		return ErrorResponse(vs, 403)
	}

	sanitized := sanitizeFilename(strings.TrimPrefix(reqPath, "/uploads/"))
	if sanitized == "" {
		return ErrorResponse(vs, 400)
	}

	target := filepath.Join(loc.UploadPath, sanitized)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return ErrorResponse(vs, 404)
	}

	if err := os.Remove(target); err != nil {
		return ErrorResponse(vs, 500)
	}

	body := []byte("<html><body><h1>Deleted</h1><p>" + sanitized + "</p></body></html>")
	resp := request.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "text/html")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = body
	return resp
}
