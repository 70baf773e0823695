package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Artifact directory the generation intermediary deposits result files into.
	ArtifactDir           string
	ArtifactPrefix        string
	ArtifactExt           string
	ArtifactRecencyWindow time.Duration

	// Generation service (chat-mediated) settings. Channel/token may instead be
	// stored through the settings table or supplied per request.
	GenBaseURL      string
	GenChannelID    string
	GenAccountToken string
	GenStyleParams  string
	GenPollInterval time.Duration
	GenAwaitTimeout time.Duration
	PacingMinDelay  time.Duration
	PacingMaxDelay  time.Duration

	// Public image host used to publish reference images.
	ImageHostBaseURL string
	ImageHostAPIKey  string

	// Prompt translation (chat-completions service).
	TranslateAPIKey  string
	TranslateModel   string
	TranslateBaseURL string

	// Language the prompt builder writes in; locales differing from it are
	// routed through the translation adapter.
	PromptLanguage string
	DefaultLocale  string
	GeoIPDBPath    string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ArtifactDir:           getEnv("ARTIFACT_DIR", "./artifacts"),
		ArtifactPrefix:        getEnv("ARTIFACT_PREFIX", "grid_"),
		ArtifactExt:           getEnv("ARTIFACT_EXT", ".jpg"),
		ArtifactRecencyWindow: time.Second * time.Duration(getEnvInt("ARTIFACT_RECENCY_WINDOW_SECONDS", 300)),

		GenBaseURL:      getEnv("IMAGEGEN_BASE_URL", "https://discord.com/api/v10"),
		GenChannelID:    os.Getenv("IMAGEGEN_CHANNEL_ID"),
		GenAccountToken: os.Getenv("IMAGEGEN_ACCOUNT_TOKEN"),
		GenStyleParams:  getEnv("IMAGEGEN_STYLE_PARAMS", "--ar 3:2 --style raw"),
		GenPollInterval: time.Second * time.Duration(getEnvInt("IMAGEGEN_POLL_INTERVAL_SECONDS", 5)),
		GenAwaitTimeout: time.Second * time.Duration(getEnvInt("IMAGEGEN_AWAIT_TIMEOUT_SECONDS", 300)),
		PacingMinDelay:  time.Second * time.Duration(getEnvInt("IMAGEGEN_PACING_MIN_SECONDS", 2)),
		PacingMaxDelay:  time.Second * time.Duration(getEnvInt("IMAGEGEN_PACING_MAX_SECONDS", 5)),

		ImageHostBaseURL: getEnv("IMAGE_HOST_BASE_URL", "https://api.imgbb.com"),
		ImageHostAPIKey:  os.Getenv("IMAGE_HOST_API_KEY"),

		TranslateAPIKey:  os.Getenv("TRANSLATE_API_KEY"),
		TranslateModel:   getEnv("TRANSLATE_MODEL", "gpt-4o-mini"),
		TranslateBaseURL: getEnv("TRANSLATE_BASE_URL", "https://api.openai.com/v1"),

		PromptLanguage: getEnv("PROMPT_LANGUAGE", "en"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 6),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.PacingMaxDelay < cfg.PacingMinDelay {
		cfg.PacingMaxDelay = cfg.PacingMinDelay
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
