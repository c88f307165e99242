package request

import (
	"bytes"
	"fmt"
	"strings"
)

// validMethods is the whitelist from spec.md §4.5.
var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"HEAD": true, "OPTIONS": true, "PATCH": true,
}

// Parse turns one already-framed request byte range (as delimited by the
// RequestFramer) into a structured Request. On any protocol violation it
// returns a Request with IsError set and ErrorMsg describing the
// violation, never a Go error -- the event loop turns that into a 400
// response (spec.md §4.5).
func Parse(raw []byte) *Request {
	headerEnd := bytes.Index(raw, []byte("\r\n\r\n"))
	var headerBytes, body []byte
	if headerEnd == -1 {
		headerBytes = raw
	} else {
		headerBytes = raw[:headerEnd]
		body = raw[headerEnd+4:]
	}

	lines := strings.Split(string(headerBytes), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return errorRequest("empty request")
	}

	req := &Request{Headers: NewHeader(), Body: body}

	if err := parseRequestLine(req, lines[0]); err != nil {
		return errorRequest(err.Error())
	}

	hostCount := 0
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return errorRequest("malformed header line")
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.EqualFold(key, "host") {
			hostCount++
		}
		req.Headers.Add(key, val)
	}

	if req.Headers.Has("content-length") && req.Headers.Has("transfer-encoding") &&
		strings.Contains(strings.ToLower(req.Headers.Get("transfer-encoding")), "chunked") {
		return errorRequest("Content-Length and Transfer-Encoding both present")
	}

	if req.Version == "HTTP/1.1" {
		if hostCount == 0 {
			return errorRequest("missing Host header")
		}
		if hostCount > 1 {
			return errorRequest("duplicate Host header")
		}
	}

	conn := strings.ToLower(req.Headers.Get("connection"))
	switch req.Version {
	case "HTTP/1.1":
		req.ConnectionClose = conn == "close"
	case "HTTP/1.0":
		req.ConnectionClose = conn != "keep-alive"
	}

	return req
}

func errorRequest(msg string) *Request {
	return &Request{Headers: NewHeader(), IsError: true, ErrorMsg: msg}
}

// parseRequestLine parses "METHOD SP PATH SP VERSION" and validates each
// part per spec.md §4.5.
func parseRequestLine(req *Request, line string) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return fmt.Errorf("malformed request line")
	}
	method, path, version := parts[0], parts[1], parts[2]

	if !validMethods[method] {
		return fmt.Errorf("unsupported method %q", method)
	}
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if method != "CONNECT" && method != "OPTIONS" && path[0] != '/' {
		return fmt.Errorf("path must begin with '/'")
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c <= 0x1F || c == 0x7F || c == ' ' {
			return fmt.Errorf("illegal byte in path")
		}
	}
	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return fmt.Errorf("unsupported version %q", version)
	}

	rawPath := path
	p, q, _ := strings.Cut(path, "?")

	req.Method = method
	req.RawPath = rawPath
	req.Path = p
	req.Query = q
	req.Version = version
	return nil
}
