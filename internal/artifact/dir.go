package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults describe the naming convention of files the generation
// intermediary deposits into the artifact directory.
const (
	DefaultPrefix        = "grid_"
	DefaultExt           = ".jpg"
	DefaultRecencyWindow = 5 * time.Minute
)

// ErrNotFound is returned when neither a direct reference nor the recency
// scan yields an artifact.
var ErrNotFound = errors.New("artifact: no matching file found")

// Dir provides read access to the flat directory the generation service (or
// its intermediary) writes result files into. The pipeline never writes
// generation outputs here itself.
type Dir struct {
	path   string
	prefix string
	ext    string
	window time.Duration
	now    func() time.Time
}

// Option customizes a Dir.
type Option func(*Dir)

// WithNaming overrides the expected filename prefix and extension.
func WithNaming(prefix, ext string) Option {
	return func(d *Dir) {
		if strings.TrimSpace(prefix) != "" {
			d.prefix = prefix
		}
		if strings.TrimSpace(ext) != "" {
			d.ext = ext
		}
	}
}

// WithRecencyWindow bounds how old a scanned file may be to count as the
// output of the current job.
func WithRecencyWindow(window time.Duration) Option {
	return func(d *Dir) {
		if window > 0 {
			d.window = window
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dir) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDir validates the directory and returns a reader over it.
func NewDir(path string, opts ...Option) (*Dir, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("artifact: directory path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: ensure directory: %w", err)
	}
	d := &Dir{
		path:   path,
		prefix: DefaultPrefix,
		ext:    DefaultExt,
		window: DefaultRecencyWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Path returns the directory root.
func (d *Dir) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Locate correlates a finished generation with an output file. A direct
// reference naming an existing file wins outright; otherwise the directory is
// scanned for the newest file matching the naming convention inside the
// recency window. The scan is a heuristic: under concurrent jobs it can
// misattribute a file, so callers must keep finalize idempotent.
func (d *Dir) Locate(preferred string) (string, error) {
	if d == nil {
		return "", ErrNotFound
	}
	if name, err := d.resolve(preferred); err == nil {
		return name, nil
	}
	return d.newestRecent()
}

// resolve checks whether name exists inside the directory.
func (d *Dir) resolve(name string) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(filepath.Join(d.path, clean))
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return clean, nil
}

func (d *Dir) newestRecent() (string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return "", fmt.Errorf("artifact: read directory: %w", err)
	}

	cutoff := d.now().Add(-d.window)
	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, d.prefix) || !strings.HasSuffix(name, d.ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if mod.Before(cutoff) {
			continue
		}
		if best == "" || mod.After(bestTime) {
			best = name
			bestTime = mod
		}
	}
	if best == "" {
		return "", ErrNotFound
	}
	return best, nil
}

// Read returns the bytes of a previously located artifact.
func (d *Dir) Read(name string) ([]byte, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.path, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifact: read file: %w", err)
	}
	return data, nil
}

// sanitizeName keeps lookups inside the flat directory.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNotFound
	}
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := filepath.Clean(name)
	if cleaned == "." || strings.Contains(cleaned, "/") {
		return "", errors.New("artifact: invalid file name")
	}
	return cleaned, nil
}
