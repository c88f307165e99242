package cgi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/vallucodes/webserver-sub000/request"
)

// parseCGIOutput splits a script's stdout at the first CRLFCRLF (or LFLF
// fallback) header/body separator and applies the Status-line special
// case, per spec.md §4.8.
func parseCGIOutput(out []byte) *request.Response {
	sep := "\r\n\r\n"
	idx := bytes.Index(out, []byte(sep))
	if idx == -1 {
		sep = "\n\n"
		idx = bytes.Index(out, []byte(sep))
	}

	resp := request.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "text/html")

	if idx == -1 {
		resp.Body = out
		resp.Headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
		return resp
	}

	headerBlock := string(out[:idx])
	body := out[idx+len(sep):]

	for _, line := range strings.Split(headerBlock, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		val = strings.TrimSpace(val)
		if strings.EqualFold(name, "status") {
			code, statusText := splitStatusLine(val)
			resp.StatusCode = code
			resp.StatusText = statusText
		} else {
			resp.Headers.Set(name, val)
		}
	}

	if !resp.Headers.Has("content-type") {
		resp.Headers.Set("Content-Type", "text/html")
	}
	resp.Body = body
	resp.Headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	return resp
}

func splitStatusLine(val string) (code int, text string) {
	parts := strings.SplitN(val, " ", 2)
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 200, "OK"
	}
	if len(parts) == 2 {
		text = parts[1]
	}
	return n, text
}
