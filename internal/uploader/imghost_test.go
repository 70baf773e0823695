package uploader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func hostServer(t *testing.T, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("key") != "access-key" {
			t.Errorf("key = %q", r.FormValue("key"))
		}
		if capture != nil {
			*capture = r.FormValue("image")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"url": "https://i.example/abc.jpg"},
		})
	}))
}

func TestUploadLocalFile(t *testing.T) {
	var sent string
	srv := hostServer(t, &sent)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "crop.jpg")
	if err := os.WriteFile(path, []byte("jpegbytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c := New(Options{BaseURL: srv.URL, APIKey: "access-key"})
	got, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got != "https://i.example/abc.jpg" {
		t.Fatalf("url = %q", got)
	}
	if sent != base64.StdEncoding.EncodeToString([]byte("jpegbytes")) {
		t.Fatalf("payload mismatch: %q", sent)
	}
}

func TestUploadInlineBase64WithDataURI(t *testing.T) {
	var sent string
	srv := hostServer(t, &sent)
	defer srv.Close()

	raw := base64.StdEncoding.EncodeToString([]byte("pngbytes"))
	c := New(Options{BaseURL: srv.URL, APIKey: "access-key"})

	got, err := c.Upload(context.Background(), "data:image/png;base64,"+raw)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got == "" || sent != raw {
		t.Fatalf("url = %q, payload = %q", got, sent)
	}
}

func TestUploadHostFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"message": "invalid key"},
		})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "access-key"})
	_, err := c.Upload(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
}

func TestUploadGarbageReference(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:0", APIKey: "access-key"})

	if _, err := c.Upload(context.Background(), "!!not base64 and not a file!!"); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
}

func TestUploadWithoutKey(t *testing.T) {
	c := New(Options{})

	if _, err := c.Upload(context.Background(), "whatever"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
