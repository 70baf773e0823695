package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"recipeshot/internal/domain"
	"recipeshot/internal/infra"
	"recipeshot/internal/pipeline"
)

// GenerateRunner is the pipeline entry point the API exposes.
type GenerateRunner interface {
	Generate(ctx context.Context, req pipeline.Request) pipeline.Result
}

// ArtifactReader reads located artifacts for download endpoints.
type ArtifactReader interface {
	Read(name string) ([]byte, error)
}

// App bundles the handler dependencies.
type App struct {
	Jobs      domain.JobRepository
	Recipes   domain.RecipeRepository
	Pipeline  GenerateRunner
	Artifacts ArtifactReader
	Logger    infra.Logger
}

func NewApp(jobs domain.JobRepository, recipes domain.RecipeRepository, pipe GenerateRunner, artifacts ArtifactReader, logger infra.Logger) *App {
	return &App{
		Jobs:      jobs,
		Recipes:   recipes,
		Pipeline:  pipe,
		Artifacts: artifacts,
		Logger:    logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
