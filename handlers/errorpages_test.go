package handlers

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vallucodes/webserver-sub000/config"
)

func TestErrorResponsePrefersConfiguredPageOverDefault(t *testing.T) {
	dir := t.TempDir()
	custom := dir + "/custom_404.html"
	require.NoError(t, os.WriteFile(custom, []byte("<h1>custom not found</h1>"), 0o644))

	vs := &config.VirtualServer{ErrorPages: map[int]string{404: custom}}
	resp := ErrorResponse(vs, 404)

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "<h1>custom not found</h1>", string(resp.Body))
	assert.Equal(t, "text/html", resp.Headers.Get("Content-Type"))
}

func TestErrorResponseFallsBackToCannedBodyWhenNoPageReadable(t *testing.T) {
	vs := &config.VirtualServer{}
	resp := ErrorResponse(vs, 500)

	assert.Equal(t, 500, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "500")
	assert.Contains(t, string(resp.Body), "Internal Server Error")
}
