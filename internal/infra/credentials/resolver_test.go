package credentials

import (
	"context"
	"errors"
	"testing"
)

type stubSettings struct {
	values map[string]string
	err    error
}

func (s *stubSettings) Value(ctx context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[key], nil
}

func TestResolverOverrideWins(t *testing.T) {
	settings := &stubSettings{values: map[string]string{
		KeyChannelID:    "stored-channel",
		KeyAccountToken: "stored-token",
	}}
	r := NewResolver(settings, "env-channel", "env-token")

	got, err := r.Resolve(context.Background(), &Override{ChannelID: "ovr-channel", Token: "ovr-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != SourceOverride || got.ChannelID != "ovr-channel" {
		t.Fatalf("unexpected credentials: %+v", got)
	}
}

func TestResolverPartialOverrideFallsThrough(t *testing.T) {
	settings := &stubSettings{values: map[string]string{
		KeyChannelID:    "stored-channel",
		KeyAccountToken: "stored-token",
	}}
	r := NewResolver(settings, "", "")

	got, err := r.Resolve(context.Background(), &Override{ChannelID: "only-channel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != SourceStore || got.Token != "stored-token" {
		t.Fatalf("partial override should fall through to store, got %+v", got)
	}
}

func TestResolverPartialStoreFallsThroughToEnv(t *testing.T) {
	settings := &stubSettings{values: map[string]string{KeyChannelID: "stored-channel"}}
	r := NewResolver(settings, "env-channel", "env-token")

	got, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != SourceEnvironment {
		t.Fatalf("source = %s, want environment", got.Source)
	}
}

func TestResolverNotConfigured(t *testing.T) {
	r := NewResolver(&stubSettings{}, "", "")

	_, err := r.Resolve(context.Background(), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if len(RemediationSteps()) == 0 {
		t.Fatal("remediation steps must not be empty")
	}
}

func TestResolverSettingsErrorPropagates(t *testing.T) {
	r := NewResolver(&stubSettings{err: errors.New("boom")}, "env-channel", "env-token")

	_, err := r.Resolve(context.Background(), nil)
	if err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("store failure must surface, got %v", err)
	}
}
