// Package genclient talks to the chat-mediated image generation service. The
// service has no job API: a prompt is posted as a message into a channel and
// the generator bot later posts a completion message into the same channel.
// Correlation is therefore timing- and content-based, which is why the
// pipeline keeps a directory-scan fallback behind this client.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recipeshot/internal/infra"
	"recipeshot/internal/infra/credentials"
)

// ErrAwaitTimeout indicates the completion message never showed up inside the
// await deadline.
var ErrAwaitTimeout = errors.New("genclient: generation did not complete in time")

// Options configures a client. One client serves exactly one job: session
// state is bound to the credentials it was built with and must not leak
// across jobs, so callers construct a fresh client per job via the factory in
// the pipeline package.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	AwaitTimeout time.Duration
	Logger       *infra.Logger
}

// Client submits prompts to a channel and awaits the bot's completion signal.
type Client struct {
	channelID    string
	token        string
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	awaitTimeout time.Duration
	logger       *infra.Logger
}

// Submission is a confirmed in-flight request.
type Submission struct {
	client      *Client
	messageID   string
	promptKey   string
	submittedAt time.Time
}

// RemoteResult is the completion signal. ArtifactName may be empty: some
// deployments only announce completion in text and leave the file drop to an
// intermediary, in which case the caller falls back to scanning the artifact
// directory.
type RemoteResult struct {
	CorrelationID string
	ArtifactName  string
}

type channelMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Nonce   string `json:"nonce"`
	Author  struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
	Attachments []struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	} `json:"attachments"`
}

// New builds a client bound to the resolved credentials.
func New(creds credentials.Credentials, opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://discord.com/api/v10"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	awaitTimeout := opts.AwaitTimeout
	if awaitTimeout <= 0 {
		awaitTimeout = 5 * time.Minute
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		channelID:    creds.ChannelID,
		token:        creds.Token,
		baseURL:      baseURL,
		http:         httpClient,
		pollInterval: pollInterval,
		awaitTimeout: awaitTimeout,
		logger:       logger,
	}
}

// Submit posts the prompt message into the channel and confirms acceptance.
// The generation itself has not finished when Submit returns; callers must
// Await the completion signal.
func (c *Client) Submit(ctx context.Context, prompt, params string) (*Submission, error) {
	content := strings.TrimSpace(prompt)
	if params = strings.TrimSpace(params); params != "" {
		content = content + " " + params
	}
	if content == "" {
		return nil, errors.New("genclient: prompt is empty")
	}

	payload := map[string]any{
		"content": content,
		"nonce":   uuid.NewString(),
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("genclient: encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(c.channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("genclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genclient: submit message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("genclient: submit rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var posted channelMessage
	if err := json.NewDecoder(resp.Body).Decode(&posted); err != nil {
		return nil, fmt.Errorf("genclient: decode submit response: %w", err)
	}
	if posted.ID == "" {
		return nil, errors.New("genclient: submit response carried no message id")
	}

	c.logger.Info().Str("message_id", posted.ID).Msg("genclient: prompt submitted")
	return &Submission{
		client:      c,
		messageID:   posted.ID,
		promptKey:   promptKey(prompt),
		submittedAt: time.Now(),
	}, nil
}

// Await polls the channel until the generator bot posts a completion message
// correlating with this submission, or the deadline passes.
func (s *Submission) Await(ctx context.Context) (*RemoteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.client.awaitTimeout)
	defer cancel()

	ticker := time.NewTicker(s.client.pollInterval)
	defer ticker.Stop()

	for {
		result, err := s.poll(ctx)
		if err != nil {
			s.client.logger.Warn().Err(err).Msg("genclient: poll failed, retrying")
		} else if result != nil {
			return result, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrAwaitTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Submission) poll(ctx context.Context) (*RemoteResult, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/messages?after=%s&limit=50",
		s.client.baseURL, url.PathEscape(s.client.channelID), url.QueryEscape(s.messageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("genclient: build poll request: %w", err)
	}
	req.Header.Set("Authorization", s.client.token)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genclient: poll messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genclient: poll status %d", resp.StatusCode)
	}

	var messages []channelMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("genclient: decode poll response: %w", err)
	}

	for _, msg := range messages {
		if !s.matches(msg) {
			continue
		}
		if isProgressUpdate(msg.Content) {
			s.client.logger.Debug().Str("message_id", msg.ID).Msg("genclient: generation in progress")
			continue
		}
		result := &RemoteResult{CorrelationID: msg.ID}
		if len(msg.Attachments) > 0 {
			result.ArtifactName = msg.Attachments[0].Filename
		}
		return result, nil
	}
	return nil, nil
}

// matches accepts bot messages that echo the head of our prompt. The bot
// rewrites whitespace and truncates long prompts, so a normalized prefix
// comparison is the strongest correlation the service offers.
func (s *Submission) matches(msg channelMessage) bool {
	if !msg.Author.Bot {
		return false
	}
	return strings.Contains(normalizeText(msg.Content), s.promptKey)
}

// isProgressUpdate recognizes the bot's interim "NN%" status edits.
func isProgressUpdate(content string) bool {
	return strings.Contains(content, "%") && !strings.Contains(content, "100%")
}

// promptKey normalizes the prompt head used for correlation.
func promptKey(prompt string) string {
	const keyLen = 48
	normalized := normalizeText(prompt)
	if len(normalized) > keyLen {
		normalized = normalized[:keyLen]
	}
	return normalized
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
