package handlers

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// maxUploadBytes is the 1 MiB per-file cap from spec.md §4.7.
const maxUploadBytes = 1 << 20

// sanitizeFilename strips the path-breaking characters spec.md §4.7 names
// and returns empty if nothing useful remains.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Post parses the first multipart/form-data file part of req.Body and
// writes it under loc.UploadPath.
func Post(vs *config.VirtualServer, loc *config.Location, req *request.Request) *request.Response {
	if loc.UploadPath == "" {
		return ErrorResponse(vs, 403)
	}

	mediaType, params, err := mime.ParseMediaType(req.Headers.Get("content-type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return ErrorResponse(vs, 400)
	}

	mr := multipart.NewReader(bytes.NewReader(req.Body), params["boundary"])
	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return ErrorResponse(vs, 400)
		}
		if err != nil {
			return ErrorResponse(vs, 400)
		}
		if p.FileName() != "" {
			part = p
			break
		}
	}

	sanitized := sanitizeFilename(part.FileName())
	if sanitized == "" {
		return ErrorResponse(vs, 400)
	}

	data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes+1))
	if err != nil {
		return ErrorResponse(vs, 500)
	}
	if len(data) > maxUploadBytes {
		return ErrorResponse(vs, 413)
	}

	if err := os.MkdirAll(loc.UploadPath, 0o755); err != nil {
		return ErrorResponse(vs, 500)
	}
	dest := filepath.Join(loc.UploadPath, sanitized)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return ErrorResponse(vs, 500)
	}

	body := []byte("<html><body><h1>Upload complete</h1><p>" + sanitized + "</p></body></html>")
	resp := request.NewResponse(201, "Created")
	resp.Headers.Set("Content-Type", "text/html")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = body
	return resp
}
