package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured indicates no source produced a complete credential pair.
// The pipeline must not attempt submission when it is returned.
var ErrNotConfigured = errors.New("credentials: generation service not configured")

// Source tags which lookup satisfied a resolution, for diagnostics.
type Source string

const (
	SourceOverride    Source = "override"
	SourceStore       Source = "store"
	SourceEnvironment Source = "environment"
)

// Credentials is the complete pair required to talk to the generation service.
type Credentials struct {
	ChannelID string
	Token     string
	Source    Source
}

func (c Credentials) complete() bool {
	return c.ChannelID != "" && c.Token != ""
}

// Override carries request-scoped credentials supplied by the caller. It wins
// over every persisted source when complete.
type Override struct {
	ChannelID string
	Token     string
}

// SettingsReader is the persisted key-value lookup the resolver consults after
// the override. Value returns "" for absent keys.
type SettingsReader interface {
	Value(ctx context.Context, key string) (string, error)
}

// Resolver walks the ordered credential chain: request override, settings
// store, process environment. A source only wins with both values present;
// one half of a pair is treated as absent.
type Resolver struct {
	settings     SettingsReader
	envChannelID string
	envToken     string
}

func NewResolver(settings SettingsReader, envChannelID, envToken string) *Resolver {
	return &Resolver{
		settings:     settings,
		envChannelID: strings.TrimSpace(envChannelID),
		envToken:     strings.TrimSpace(envToken),
	}
}

// Resolve returns the first complete credential pair, tagged with its source,
// or ErrNotConfigured when the chain is exhausted.
func (r *Resolver) Resolve(ctx context.Context, override *Override) (Credentials, error) {
	if override != nil {
		c := Credentials{
			ChannelID: strings.TrimSpace(override.ChannelID),
			Token:     strings.TrimSpace(override.Token),
			Source:    SourceOverride,
		}
		if c.complete() {
			return c, nil
		}
	}

	if r.settings != nil {
		channelID, err := r.settings.Value(ctx, KeyChannelID)
		if err != nil {
			return Credentials{}, fmt.Errorf("credentials: read settings: %w", err)
		}
		token, err := r.settings.Value(ctx, KeyAccountToken)
		if err != nil {
			return Credentials{}, fmt.Errorf("credentials: read settings: %w", err)
		}
		c := Credentials{ChannelID: channelID, Token: token, Source: SourceStore}
		if c.complete() {
			return c, nil
		}
	}

	c := Credentials{ChannelID: r.envChannelID, Token: r.envToken, Source: SourceEnvironment}
	if c.complete() {
		return c, nil
	}

	return Credentials{}, ErrNotConfigured
}

// RemediationSteps is the ordered checklist reported alongside
// ErrNotConfigured.
func RemediationSteps() []string {
	return []string{
		"supply channel_id and account_token in the request body",
		"store them once with the gencreds command",
		"or export IMAGEGEN_CHANNEL_ID and IMAGEGEN_ACCOUNT_TOKEN",
	}
}
