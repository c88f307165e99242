package handlers

import "strings"

// contentTypeByExtension is the ~12-entry MIME table from spec.md §4.7.
// Unlisted extensions fall back to application/octet-stream.
var contentTypeByExtension = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
}

func contentTypeFor(path string) string {
	ext := extOf(path)
	if ct, ok := contentTypeByExtension[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func extOf(path string) string {
	dot := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if dot <= slash {
		return ""
	}
	return strings.ToLower(path[dot:])
}
