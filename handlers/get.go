package handlers

import (
	"html"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

// DefaultIndexFiles is tried, in order, after the location's own index and
// the virtual server's index, per spec.md §4.7.
var DefaultIndexFiles = []string{"index.html"}

// Get serves static files and directory listings. path has already been
// normalised and location-matched by the router.
func Get(vs *config.VirtualServer, loc *config.Location, reqPath string) *request.Response {
	target := targetPath(vs.Root, reqPath)

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResponse(vs, 404)
		}
		return ErrorResponse(vs, 500)
	}

	if info.IsDir() {
		return serveDirectory(vs, loc, target, reqPath)
	}
	return serveFile(vs, target)
}

func targetPath(root, reqPath string) string {
	if reqPath == "/" {
		return filepath.Join(root, "index.html")
	}
	return filepath.Join(root, reqPath)
}

func serveDirectory(vs *config.VirtualServer, loc *config.Location, dir, reqPath string) *request.Response {
	if loc.Autoindex {
		return autoindex(vs, dir, reqPath)
	}

	candidates := []string{}
	if loc.Index != "" {
		candidates = append(candidates, filepath.Join(dir, loc.Index))
	}
	if vs.Index != "" {
		candidates = append(candidates, filepath.Join(vs.Root, vs.Index))
	}
	for _, name := range DefaultIndexFiles {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return serveFile(vs, c)
		}
	}
	return ErrorResponse(vs, 404)
}

func serveFile(vs *config.VirtualServer, target string) *request.Response {
	body, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResponse(vs, 404)
		}
		return ErrorResponse(vs, 500)
	}

	resp := request.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", contentTypeFor(target))
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = body
	return resp
}

// dirEntry is the per-row context for the autoindex template, named for
// the {{ITEMS}} placeholder substitution spec.md §6 describes.
type dirEntry struct {
	Name string
	Size string
	Dir  bool
}

func autoindex(vs *config.VirtualServer, dir, reqPath string) *request.Response {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ErrorResponse(vs, 500)
	}

	rows := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		size := ""
		if !e.IsDir() {
			size = humanize.IBytes(uint64(info.Size()))
		}
		rows = append(rows, dirEntry{Name: e.Name(), Size: size, Dir: e.IsDir()})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dir != rows[j].Dir {
			return rows[i].Dir
		}
		return rows[i].Name < rows[j].Name
	})

	var items strings.Builder
	for _, r := range rows {
		name := r.Name
		if r.Dir {
			name += "/"
		}
		sizeCol := r.Size
		if r.Dir {
			sizeCol = "-"
		}
		items.WriteString("<tr><td><a href=\"" + html.EscapeString(name) + "\">" + html.EscapeString(name) + "</a></td><td>" + sizeCol + "</td></tr>\n")
	}

	parentLink := ""
	if reqPath != "/" {
		parentLink = "<a href=\"" + html.EscapeString(path.Dir(strings.TrimSuffix(reqPath, "/"))) + "\">..</a>"
	}

	tmpl, err := os.ReadFile("www/autoindex_template.html")
	var body string
	if err != nil {
		body = "<html><body><h1>Index of " + html.EscapeString(reqPath) + "</h1>" + parentLink + "<table>" + items.String() + "</table></body></html>"
	} else {
		body = strings.NewReplacer(
			"{{PATH}}", html.EscapeString(reqPath),
			"{{PARENT_LINK}}", parentLink,
			"{{ITEMS}}", items.String(),
		).Replace(string(tmpl))
	}

	resp := request.NewResponse(200, "OK")
	resp.Headers.Set("Content-Type", "text/html")
	resp.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Body = []byte(body)
	return resp
}
