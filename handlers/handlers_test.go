package handlers

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/request"
)

func withTempRoot(t *testing.T) string {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestGetServesIndexAtRoot(t *testing.T) {
	root := withTempRoot(t)
	vs := &config.VirtualServer{Root: root}
	loc := &config.Location{Pattern: "/"}
	resp := Get(vs, loc, "/")
	if resp.StatusCode != 200 || string(resp.Body) != "<h1>Hi</h1>" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Headers.Get("Content-Type") != "text/html" {
		t.Fatalf("expected text/html, got %q", resp.Headers.Get("Content-Type"))
	}
}

func TestGetMissingFileReturns404(t *testing.T) {
	root := withTempRoot(t)
	vs := &config.VirtualServer{Root: root}
	loc := &config.Location{Pattern: "/"}
	resp := Get(vs, loc, "/missing.html")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetDirectoryWithoutIndexOrAutoindexReturns404(t *testing.T) {
	root := withTempRoot(t)
	if err := os.Mkdir(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	vs := &config.VirtualServer{Root: root}
	loc := &config.Location{Pattern: "/"}
	resp := Get(vs, loc, "/empty")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetDirectoryAutoindexListsEntries(t *testing.T) {
	root := withTempRoot(t)
	sub := filepath.Join(root, "files")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	vs := &config.VirtualServer{Root: root}
	loc := &config.Location{Pattern: "/", Autoindex: true}
	resp := Get(vs, loc, "/files")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Contains(resp.Body, []byte("a.txt")) {
		t.Fatalf("expected listing to contain a.txt, got %s", resp.Body)
	}
}

func buildMultipart(t *testing.T, filename string, content []byte) (body []byte, boundary string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), w.Boundary()
}

func TestPostWritesUploadedFile(t *testing.T) {
	dir := t.TempDir()
	body, boundary := buildMultipart(t, "hello.txt", []byte("payload"))

	req := &request.Request{Headers: request.NewHeader(), Body: body}
	req.Headers.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	vs := &config.VirtualServer{}
	loc := &config.Location{UploadPath: dir}
	resp := Post(vs, loc, req)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, resp.Body)
	}

	got, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	if err != nil || string(got) != "payload" {
		t.Fatalf("file not written correctly: %v %q", err, got)
	}
}

func TestPostWithoutUploadPathReturns403(t *testing.T) {
	vs := &config.VirtualServer{}
	loc := &config.Location{}
	req := &request.Request{Headers: request.NewHeader()}
	resp := Post(vs, loc, req)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestPostOversizedFileReturns413(t *testing.T) {
	dir := t.TempDir()
	body, boundary := buildMultipart(t, "big.bin", make([]byte, maxUploadBytes+1))

	req := &request.Request{Headers: request.NewHeader(), Body: body}
	req.Headers.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	vs := &config.VirtualServer{}
	loc := &config.Location{UploadPath: dir}
	resp := Post(vs, loc, req)
	if resp.StatusCode != 413 {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestDeleteRemovesExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	vs := &config.VirtualServer{}
	loc := &config.Location{UploadPath: dir}
	resp := Delete(vs, loc, "/uploads/a.txt")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed")
	}
}

func TestDeleteMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	vs := &config.VirtualServer{}
	loc := &config.Location{UploadPath: dir}
	resp := Delete(vs, loc, "/uploads/missing.txt")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRedirectProducesLocationHeader(t *testing.T) {
	vs := &config.VirtualServer{}
	loc := &config.Location{ReturnURL: "/new"}
	resp := Redirect(vs, loc)
	if resp.StatusCode != 302 || resp.Headers.Get("Location") != "/new" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
