package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"recipeshot/internal/adapter/repo"
	"recipeshot/internal/artifact"
	"recipeshot/internal/http/handlers"
	"recipeshot/internal/http/httpapi"
	"recipeshot/internal/infra"
	"recipeshot/internal/infra/credentials"
	"recipeshot/internal/infra/geoip"
	"recipeshot/internal/middleware"
	"recipeshot/internal/pipeline"
	"recipeshot/internal/prompt"
	"recipeshot/internal/providers/genclient"
	"recipeshot/internal/providers/translate"
	"recipeshot/internal/uploader"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	jobs := repo.NewJobRepository(runner)
	recipes := repo.NewRecipeRepository(runner)

	settings := credentials.NewStore(runner)
	resolver := credentials.NewResolver(settings, cfg.GenChannelID, cfg.GenAccountToken)

	artifacts, err := artifact.NewDir(cfg.ArtifactDir,
		artifact.WithNaming(cfg.ArtifactPrefix, cfg.ArtifactExt),
		artifact.WithRecencyWindow(cfg.ArtifactRecencyWindow),
	)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ArtifactDir).Msg("artifact directory unusable")
	}

	translator := translate.New(translate.Options{
		APIKey:  cfg.TranslateAPIKey,
		Model:   cfg.TranslateModel,
		BaseURL: cfg.TranslateBaseURL,
		Logger:  &logger,
	})

	imgHost := uploader.New(uploader.Options{
		BaseURL: cfg.ImageHostBaseURL,
		APIKey:  cfg.ImageHostAPIKey,
	})

	pipe := pipeline.New(pipeline.Deps{
		Jobs:        jobs,
		Recipes:     recipes,
		Credentials: resolver,
		Filter:      prompt.NewPhotographyFilter(),
		Translator:  translator,
		Uploader:    imgHost,
		NewClient: pipeline.NewClientFactory(genclient.Options{
			BaseURL:      cfg.GenBaseURL,
			PollInterval: cfg.GenPollInterval,
			AwaitTimeout: cfg.GenAwaitTimeout,
			Logger:       &logger,
		}),
		Artifacts: artifacts,
		Logger:    logger,
	}, pipeline.Config{
		StyleParams:    cfg.GenStyleParams,
		PromptLanguage: cfg.PromptLanguage,
		PacingMinDelay: cfg.PacingMinDelay,
		PacingMaxDelay: cfg.PacingMaxDelay,
	})

	var countryLookup middleware.CountryLookup
	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled, locale detection falls back to headers")
	} else if geo != nil {
		countryLookup = geo.CountryCode
	}

	app := handlers.NewApp(jobs, recipes, pipe, artifacts, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
