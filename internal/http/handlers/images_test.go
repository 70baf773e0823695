package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"recipeshot/internal/domain"
	"recipeshot/internal/pipeline"
)

type stubRunner struct {
	result  pipeline.Result
	lastReq pipeline.Request
	calls   int
}

func (s *stubRunner) Generate(_ context.Context, req pipeline.Request) pipeline.Result {
	s.calls++
	s.lastReq = req
	return s.result
}

type stubJobs struct {
	jobs   []domain.ImageJob
	active bool
	err    error
}

func (s *stubJobs) Create(context.Context, *domain.ImageJob) error { return nil }
func (s *stubJobs) MarkGenerating(context.Context, string) error   { return nil }
func (s *stubJobs) Finalize(context.Context, string, domain.JobStatus, string, string, string) error {
	return nil
}
func (s *stubJobs) ClearActive(context.Context, string, string) (int64, error) { return 0, nil }
func (s *stubJobs) SupersedeOthers(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (s *stubJobs) GetByID(_ context.Context, jobID string) (*domain.ImageJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.jobs {
		if s.jobs[i].ID == jobID {
			return &s.jobs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubJobs) ListByRecipe(_ context.Context, recipeID string) ([]domain.ImageJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.ImageJob
	for _, j := range s.jobs {
		if j.RecipeID == recipeID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *stubJobs) HasActive(context.Context, string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active, nil
}

type stubArtifacts struct {
	files map[string][]byte
}

func (s *stubArtifacts) Read(name string) ([]byte, error) {
	if data, ok := s.files[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no such artifact %s", name)
}

func newTestApp(runner *stubRunner, jobs *stubJobs, artifacts *stubArtifacts) *App {
	if runner == nil {
		runner = &stubRunner{}
	}
	if jobs == nil {
		jobs = &stubJobs{}
	}
	if artifacts == nil {
		artifacts = &stubArtifacts{}
	}
	return NewApp(jobs, nil, runner, artifacts, zerolog.Nop())
}

func routeRequest(t *testing.T, app *App, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/v1/recipes/{recipe_id}/image", app.GenerateImage)
	r.Get("/v1/recipes/{recipe_id}/image/status", app.ImageStatus)
	r.Get("/v1/recipes/{recipe_id}/images/archive", app.ArchiveImages)
	r.Get("/v1/jobs/{job_id}", app.GetJob)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGenerateImageSuccess(t *testing.T) {
	runner := &stubRunner{result: pipeline.Result{Success: true, JobID: "job-1", ImagePath: "grid_ok.jpg"}}
	app := newTestApp(runner, nil, nil)

	rec := routeRequest(t, app, http.MethodPost, "/v1/recipes/r-1/image", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.ImagePath != "grid_ok.jpg" {
		t.Fatalf("unexpected result %+v", result)
	}
	if runner.lastReq.RecipeID != "r-1" {
		t.Fatalf("recipe id = %q, want r-1", runner.lastReq.RecipeID)
	}
}

func TestGenerateImageFailureReturns422(t *testing.T) {
	runner := &stubRunner{result: pipeline.Result{JobID: "job-1", Error: "generation service: rejected"}}
	app := newTestApp(runner, nil, nil)

	rec := routeRequest(t, app, http.MethodPost, "/v1/recipes/r-1/image", "")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Error == "" {
		t.Fatal("expected error message in response")
	}
}

func TestGenerateImagePassesBodyFields(t *testing.T) {
	runner := &stubRunner{result: pipeline.Result{Success: true}}
	app := newTestApp(runner, nil, nil)

	body := `{"custom_prompt":"a bowl of ramen","reference_image":"https://img.example/ref.jpg","channel_id":"c-9","account_token":"t-9"}`
	rec := routeRequest(t, app, http.MethodPost, "/v1/recipes/r-1/image", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := runner.lastReq
	if got.CustomPrompt != "a bowl of ramen" {
		t.Fatalf("custom prompt = %q", got.CustomPrompt)
	}
	if got.ReferenceImage != "https://img.example/ref.jpg" {
		t.Fatalf("reference image = %q", got.ReferenceImage)
	}
	if got.Credentials == nil || got.Credentials.ChannelID != "c-9" || got.Credentials.Token != "t-9" {
		t.Fatalf("credentials override = %+v", got.Credentials)
	}
}

func TestGenerateImageRejectsBadJSON(t *testing.T) {
	runner := &stubRunner{}
	app := newTestApp(runner, nil, nil)

	rec := routeRequest(t, app, http.MethodPost, "/v1/recipes/r-1/image", "{not json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatalf("pipeline ran %d times, want 0", runner.calls)
	}
}

func TestImageStatusReportsLatestJob(t *testing.T) {
	now := time.Now()
	jobs := &stubJobs{
		active: true,
		jobs: []domain.ImageJob{
			{ID: "job-new", RecipeID: "r-1", Status: domain.JobStatusGenerating, CreatedAt: now, UpdatedAt: now},
			{ID: "job-old", RecipeID: "r-1", Status: domain.JobStatusCompleted, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		},
	}
	app := newTestApp(nil, jobs, nil)

	rec := routeRequest(t, app, http.MethodGet, "/v1/recipes/r-1/image/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		InProgress bool     `json:"in_progress"`
		LatestJob  *jobView `json:"latest_job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.InProgress {
		t.Fatal("expected in_progress true")
	}
	if resp.LatestJob == nil || resp.LatestJob.ID != "job-new" {
		t.Fatalf("latest job = %+v, want job-new", resp.LatestJob)
	}
}

func TestImageStatusWithoutJobs(t *testing.T) {
	app := newTestApp(nil, &stubJobs{}, nil)

	rec := routeRequest(t, app, http.MethodGet, "/v1/recipes/r-1/image/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["in_progress"] != false {
		t.Fatalf("in_progress = %v, want false", resp["in_progress"])
	}
	if _, ok := resp["latest_job"]; ok {
		t.Fatal("latest_job should be absent when no jobs exist")
	}
}

func TestGetJobNotFound(t *testing.T) {
	app := newTestApp(nil, &stubJobs{}, nil)

	rec := routeRequest(t, app, http.MethodGet, "/v1/jobs/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetJobReturnsRow(t *testing.T) {
	jobs := &stubJobs{jobs: []domain.ImageJob{{
		ID:       "job-1",
		RecipeID: "r-1",
		Prompt:   "A photorealistic photo of ramen",
		Status:   domain.JobStatusFailed,
		Error:    domain.ErrArtifactNotFound.Error(),
	}}}
	app := newTestApp(nil, jobs, nil)

	rec := routeRequest(t, app, http.MethodGet, "/v1/jobs/job-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var view jobView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Status != domain.JobStatusFailed || view.Error != domain.ErrArtifactNotFound.Error() {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestArchiveImagesBundlesCompletedArtifacts(t *testing.T) {
	jobs := &stubJobs{jobs: []domain.ImageJob{
		{ID: "j1", RecipeID: "r-1", Status: domain.JobStatusCompleted, ImagePath: "grid_a.jpg"},
		{ID: "j2", RecipeID: "r-1", Status: domain.JobStatusFailed},
		{ID: "j3", RecipeID: "r-1", Status: domain.JobStatusCompleted, ImagePath: "grid_b.jpg"},
		{ID: "j4", RecipeID: "r-1", Status: domain.JobStatusCompleted, ImagePath: "grid_a.jpg"},
	}}
	artifacts := &stubArtifacts{files: map[string][]byte{
		"grid_a.jpg": []byte("aaa"),
		"grid_b.jpg": []byte("bbb"),
	}}
	app := newTestApp(nil, jobs, artifacts)

	rec := routeRequest(t, app, http.MethodGet, "/v1/recipes/r-1/images/archive", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d entries, want 2 (duplicates collapsed)", len(zr.File))
	}
}

func TestArchiveImagesNoCompletedJobs(t *testing.T) {
	jobs := &stubJobs{jobs: []domain.ImageJob{
		{ID: "j1", RecipeID: "r-1", Status: domain.JobStatusFailed},
	}}
	app := newTestApp(nil, jobs, nil)

	rec := routeRequest(t, app, http.MethodGet, "/v1/recipes/r-1/images/archive", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
