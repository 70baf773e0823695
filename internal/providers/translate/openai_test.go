package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, reply string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if capture != nil && len(req.Messages) > 0 {
			*capture = req.Messages[len(req.Messages)-1].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
}

func TestTranslatePreservesLeadingURLAndFlags(t *testing.T) {
	var sent string
	srv := chatServer(t, "ein rustikales Foto von Brot", &sent)
	defer srv.Close()

	tr := New(Options{APIKey: "k", BaseURL: srv.URL})
	got := tr.Translate(context.Background(), "http://example/img.png a rustic photo of bread --ar 3:2 --style raw", "de")

	if !strings.HasPrefix(got, "http://example/img.png ") {
		t.Fatalf("leading URL must survive verbatim: %q", got)
	}
	if !strings.HasSuffix(got, "--ar 3:2 --style raw") {
		t.Fatalf("trailing parameters must survive verbatim: %q", got)
	}
	if !strings.Contains(got, "ein rustikales Foto von Brot") {
		t.Fatalf("middle must be the translation: %q", got)
	}
	if strings.Contains(sent, "http://example/img.png") || strings.Contains(sent, "--ar") {
		t.Fatalf("protected segments must not reach the translation service: %q", sent)
	}
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := New(Options{APIKey: "k", BaseURL: srv.URL})
	original := "a rustic photo of bread"

	if got := tr.Translate(context.Background(), original, "de"); got != original {
		t.Fatalf("failure must be non-fatal: got %q", got)
	}
}

func TestTranslateWithoutKeyIsIdentity(t *testing.T) {
	tr := New(Options{})
	original := "https://example/a.png text --v 6"

	if got := tr.Translate(context.Background(), original, "fr"); got != original {
		t.Fatalf("missing key must pass through: %q", got)
	}
}

func TestTranslateEmptyResponseReturnsOriginal(t *testing.T) {
	srv := chatServer(t, "   ", nil)
	defer srv.Close()

	tr := New(Options{APIKey: "k", BaseURL: srv.URL})
	original := "a photo of soup"

	if got := tr.Translate(context.Background(), original, "es"); got != original {
		t.Fatalf("nonsensical response must pass through: %q", got)
	}
}

func TestTranslateURLOnlyPromptUntouched(t *testing.T) {
	tr := New(Options{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	original := "https://example/only-url.png"

	if got := tr.Translate(context.Background(), original, "de"); got != original {
		t.Fatalf("url-only prompt has nothing to translate: %q", got)
	}
}
