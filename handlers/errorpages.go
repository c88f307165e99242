// Package handlers implements the get/post/delete/cgi/redirect request
// handlers (spec.md §4.7). Handlers only ever populate a Response; none
// of them touch the socket directly -- that stays the event loop's job.
package handlers

import (
	"os"
	"strconv"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	302: "Found",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Payload Too Large",
	500: "Internal Server Error",
	504: "Gateway Timeout",
}

// defaultErrorPageNames mirrors the conventional filesystem layout from
// spec.md §6: www/errors/<name>.
var defaultErrorPageNames = map[int]string{
	400: "bad_request_400.html",
	403: "forbidden_403.html",
	404: "not_found_404.html",
	405: "method_not_allowed_405.html",
	408: "request_timeout_408.html",
	413: "payload_too_large_413.html",
	500: "internal_server_error_500.html",
	504: "gateway_timeout_504.html",
}

// ErrorResponse renders the status code's configured error page if the
// virtual server declares one, falling back to www/errors/<default>, and
// finally to a canned one-line body if even that is unreadable (spec.md
// §7: "otherwise a built-in default page").
func ErrorResponse(vs *config.VirtualServer, code int) *request.Response {
	text := statusText[code]
	if text == "" {
		text = "Error"
	}
	resp := request.NewResponse(code, text)
	resp.Headers.Set("Content-Type", "text/html")

	if vs != nil {
		if p, ok := vs.ErrorPages[code]; ok {
			if body, err := os.ReadFile(p); err == nil {
				resp.Body = body
				resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
				return resp
			}
		}
	}

	if name, ok := defaultErrorPageNames[code]; ok {
		if body, err := os.ReadFile("www/errors/" + name); err == nil {
			resp.Body = body
			resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
			return resp
		}
	}

	resp.Body = []byte("<html><body><h1>" + strconv.Itoa(code) + " " + text + "</h1></body></html>")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	return resp
}
