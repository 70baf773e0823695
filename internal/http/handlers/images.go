package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"recipeshot/internal/domain"
	"recipeshot/internal/infra/credentials"
	"recipeshot/internal/middleware"
	"recipeshot/internal/pipeline"
	"recipeshot/pkg/zip"
)

type generateRequest struct {
	// CustomPrompt bypasses the prompt builder but still passes the filter.
	CustomPrompt string `json:"custom_prompt"`
	// ReferenceImage may be a public URL, a server-local path, or inline base64.
	ReferenceImage string `json:"reference_image"`
	// Request-scoped credentials, the highest-priority resolver source.
	ChannelID    string `json:"channel_id"`
	AccountToken string `json:"account_token"`
}

type jobView struct {
	ID            string                `json:"id"`
	RecipeID      string                `json:"recipe_id"`
	Prompt        string                `json:"prompt"`
	FilterChanges []domain.FilterChange `json:"filter_changes"`
	CorrelationID string                `json:"correlation_id,omitempty"`
	ImagePath     string                `json:"image_path,omitempty"`
	Status        domain.JobStatus      `json:"status"`
	Error         string                `json:"error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func viewOf(job *domain.ImageJob) jobView {
	return jobView{
		ID:            job.ID,
		RecipeID:      job.RecipeID,
		Prompt:        job.Prompt,
		FilterChanges: job.FilterChanges,
		CorrelationID: job.CorrelationID,
		ImagePath:     job.ImagePath,
		Status:        job.Status,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}

// GenerateImage runs the pipeline synchronously: the response is the terminal
// outcome of the job, not an acknowledgement. Regenerating is the same call
// again; the newer request supersedes whatever was in flight.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipe_id")
	if recipeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "recipe_id required")
		return
	}

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	req := pipeline.Request{
		RecipeID:       recipeID,
		CustomPrompt:   body.CustomPrompt,
		ReferenceImage: body.ReferenceImage,
		Locale:         middleware.LocaleFromContext(r.Context()),
	}
	if body.ChannelID != "" || body.AccountToken != "" {
		req.Credentials = &credentials.Override{ChannelID: body.ChannelID, Token: body.AccountToken}
	}

	result := a.Pipeline.Generate(r.Context(), req)
	if result.Success {
		a.json(w, http.StatusOK, result)
		return
	}
	a.json(w, http.StatusUnprocessableEntity, result)
}

// ImageStatus answers the UI's "is a generation in progress" question and
// returns the latest job for the recipe.
func (a *App) ImageStatus(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipe_id")
	if recipeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "recipe_id required")
		return
	}

	inProgress, err := a.Jobs.HasActive(r.Context(), recipeID)
	if err != nil {
		a.Logger.Error().Err(err).Str("recipe_id", recipeID).Msg("handlers: active lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read job state")
		return
	}

	jobs, err := a.Jobs.ListByRecipe(r.Context(), recipeID)
	if err != nil {
		a.Logger.Error().Err(err).Str("recipe_id", recipeID).Msg("handlers: job list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read job state")
		return
	}

	resp := map[string]any{"in_progress": inProgress}
	if len(jobs) > 0 {
		latest := viewOf(&jobs[0])
		resp["latest_job"] = latest
	}
	a.json(w, http.StatusOK, resp)
}

// GetJob returns one job row.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, viewOf(job))
}

// ArchiveImages bundles every completed artifact for a recipe into a zip.
func (a *App) ArchiveImages(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipe_id")
	if recipeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "recipe_id required")
		return
	}

	jobs, err := a.Jobs.ListByRecipe(r.Context(), recipeID)
	if err != nil {
		a.Logger.Error().Err(err).Str("recipe_id", recipeID).Msg("handlers: job list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load jobs")
		return
	}

	var files []zip.File
	seen := make(map[string]struct{})
	for _, job := range jobs {
		if job.Status != domain.JobStatusCompleted || job.ImagePath == "" {
			continue
		}
		if _, dup := seen[job.ImagePath]; dup {
			continue
		}
		data, err := a.Artifacts.Read(job.ImagePath)
		if err != nil {
			a.Logger.Warn().Err(err).Str("image_path", job.ImagePath).Msg("handlers: artifact unreadable, skipping")
			continue
		}
		seen[job.ImagePath] = struct{}{}
		files = append(files, zip.File{Name: job.ImagePath, Data: data})
	}
	if len(files) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no completed images for recipe")
		return
	}

	payload, err := zip.Archive(files)
	if err != nil {
		a.Logger.Error().Err(err).Str("recipe_id", recipeID).Msg("handlers: archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", recipeID+"-images.zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
