package cgi

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// Timeout is the wall-clock budget for one CGI invocation (spec.md §4.8).
const Timeout = 5 * time.Second

var interpreterByExt = map[string]string{
	".py": "/usr/bin/python3",
	".js": "/usr/bin/node",
}

// Run executes the script for req and returns the response built from its
// stdout, or a 500/504 on pipe/exit/timeout failure.
func Run(vs *config.VirtualServer, loc *config.Location, req *request.Request, scriptPath string) *request.Response {
	pathInfo := pathInfoFor(req.Path, scriptPath)
	env := buildEnv(vs, req, scriptPath, pathInfo)

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	name, args := interpreterFor(scriptPath)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = filepath.Dir(scriptPath)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(req.Body)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errorResponse(vs, 504)
	}
	if err != nil {
		return errorResponse(vs, 500)
	}

	return parseCGIOutput(stdout.Bytes())
}

func interpreterFor(scriptPath string) (name string, args []string) {
	ext := strings.ToLower(filepath.Ext(scriptPath))
	if interp, ok := interpreterByExt[ext]; ok {
		return interp, []string{scriptPath}
	}
	return scriptPath, nil
}

func pathInfoFor(reqPath, scriptPath string) string {
	base := filepath.Base(scriptPath)
	idx := strings.Index(reqPath, base)
	if idx == -1 {
		return ""
	}
	return reqPath[idx+len(base):]
}

// errorResponse avoids importing the handlers package (which would create
// an import cycle, since handlers dispatches into cgi) by rendering a
// minimal inline error body; the router/event loop is free to replace it
// with the virtual server's configured error page before sending.
func errorResponse(vs *config.VirtualServer, code int) *request.Response {
	text := map[int]string{500: "Internal Server Error", 504: "Gateway Timeout"}[code]
	resp := request.NewResponse(code, text)
	resp.Headers.Set("Content-Type", "text/html")
	body := []byte("<html><body><h1>" + strconv.Itoa(code) + " " + text + "</h1></body></html>")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = body
	return resp
}
