package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recipeshot/internal/infra"
)

const defaultTimeout = 15 * time.Second

// Options configures the chat-completions translator.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// OpenAITranslator rewrites prompt text into a target language through a
// chat-completions endpoint. It is strictly best-effort: every failure path
// returns the input unchanged, because a prompt in the wrong language is
// still a usable prompt while a failed job is not.
type OpenAITranslator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *infra.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// New constructs a translator. A missing API key is allowed; Translate then
// degrades to identity.
func New(opts Options) *OpenAITranslator {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &OpenAITranslator{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Translate rewrites text into targetLanguage. A leading image reference URL
// and any trailing generation parameters (tokens from the first " --" flag
// onward) are split off before the call and re-attached verbatim afterwards:
// the generation service parses both positionally and a translated URL or
// flag is worse than an untranslated prompt.
func (t *OpenAITranslator) Translate(ctx context.Context, text, targetLanguage string) string {
	targetLanguage = strings.TrimSpace(targetLanguage)
	if targetLanguage == "" || strings.TrimSpace(text) == "" {
		return text
	}
	if t.apiKey == "" {
		t.logger.Debug().Msg("translate: no api key, passing prompt through")
		return text
	}

	head, body, tail := splitProtected(text)
	if strings.TrimSpace(body) == "" {
		return text
	}

	translated, err := t.complete(ctx, body, targetLanguage)
	if err != nil {
		t.logger.Warn().Err(err).Str("target", targetLanguage).Msg("translate: falling back to original prompt")
		return text
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return text
	}

	var b strings.Builder
	if head != "" {
		b.WriteString(head)
		b.WriteString(" ")
	}
	b.WriteString(translated)
	if tail != "" {
		b.WriteString(" ")
		b.WriteString(tail)
	}
	return b.String()
}

func (t *OpenAITranslator) complete(ctx context.Context, body, targetLanguage string) (string, error) {
	payload := chatRequest{
		Model:       t.model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: "You translate image-generation prompts. Respond with the translation only, no commentary."},
			{Role: "user", Content: fmt.Sprintf("Translate into %s:\n%s", targetLanguage, body)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call translation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation service status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("translation service returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// splitProtected separates the translatable middle of a prompt from a leading
// image URL and trailing "--flag ..." parameters.
func splitProtected(text string) (head, body, tail string) {
	body = text

	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		if idx := strings.IndexByte(trimmed, ' '); idx > 0 {
			head = trimmed[:idx]
			body = trimmed[idx+1:]
		} else {
			return trimmed, "", ""
		}
	}

	if idx := strings.Index(body, " --"); idx >= 0 {
		tail = strings.TrimSpace(body[idx+1:])
		body = body[:idx]
	}
	return head, strings.TrimSpace(body), tail
}
