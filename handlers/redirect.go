package handlers

import (
	"html"
	"strconv"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// Redirect produces a 302 Found pointing at loc.ReturnURL, per spec.md
// §4.7 ("the source only accepts a single URL token").
func Redirect(vs *config.VirtualServer, loc *config.Location) *request.Response {
	if loc.ReturnURL == "" {
		return ErrorResponse(vs, 404)
	}

	resp := request.NewResponse(302, "Found")
	resp.Headers.Set("Location", loc.ReturnURL)
	resp.Headers.Set("Content-Type", "text/html")
	body := []byte("<html><body>Moved to <a href=\"" + html.EscapeString(loc.ReturnURL) + "\">" + html.EscapeString(loc.ReturnURL) + "</a></body></html>")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = body
	return resp
}
