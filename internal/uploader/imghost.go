// Package uploader publishes reference images to a public image host. Prompts
// can only reference an image by public URL, while the images users crop or
// pick locally exist as files or inline base64 payloads; this is the bridge.
package uploader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrUploadFailed wraps every failure mode of the host call so callers can
// treat the whole step as one fallible unit.
var ErrUploadFailed = errors.New("uploader: image host upload failed")

// ErrNotConfigured indicates no access key is set; uploads cannot work.
var ErrNotConfigured = errors.New("uploader: image host access key not configured")

// Options configures the image host client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client posts image payloads to the host's upload endpoint. The call is
// plain request/response with no state machine behind it.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// New constructs a client. The access key may be empty; Upload then fails
// with ErrNotConfigured.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.imgbb.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(opts.APIKey),
		http:    httpClient,
	}
}

// Upload normalizes ref (a local file path or an inline base64 payload, with
// or without a data-URI prefix) to bytes and publishes it, returning the
// public URL.
func (c *Client) Upload(ctx context.Context, ref string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	data, err := normalizePayload(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(data))

	endpoint := c.baseURL + "/1/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if !decoded.Success || decoded.Data.URL == "" {
		msg := decoded.Error.Message
		if msg == "" {
			msg = "host reported failure"
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}
	return decoded.Data.URL, nil
}

// normalizePayload turns a file path or inline base64 string into raw bytes.
func normalizePayload(ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("empty image reference")
	}

	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("image file is empty")
		}
		return data, nil
	}

	payload := ref
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("reference is neither a readable file nor base64: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("decoded image payload is empty")
	}
	return data, nil
}
