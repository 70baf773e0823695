// Package pipeline drives one image-generation request from recipe row to
// terminal job state. There is no background scheduler: each caller-initiated
// request executes the whole chain itself and returns a terminal result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipeshot/internal/artifact"
	"recipeshot/internal/domain"
	"recipeshot/internal/infra"
	"recipeshot/internal/infra/credentials"
	"recipeshot/internal/prompt"
	"recipeshot/internal/providers/genclient"
)

// CredentialSource resolves the generation credentials for a request.
type CredentialSource interface {
	Resolve(ctx context.Context, override *credentials.Override) (credentials.Credentials, error)
}

// ContentFilter is the single validation gate before remote cost is incurred.
type ContentFilter interface {
	Filter(text string) prompt.Result
}

// Translator rewrites prompt text into the pipeline's working language. It is
// best-effort and must return its input on failure.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) string
}

// Uploader publishes a local or inline reference image to a public URL.
type Uploader interface {
	Upload(ctx context.Context, ref string) (string, error)
}

// Submission is an in-flight remote request that can be awaited.
type Submission interface {
	Await(ctx context.Context) (*genclient.RemoteResult, error)
}

// GenerationClient submits one prompt. Implementations hold per-credential
// session state, which is why the pipeline builds a fresh one per job instead
// of sharing a global.
type GenerationClient interface {
	Submit(ctx context.Context, promptText, params string) (Submission, error)
}

// ClientFactory builds a client bound to resolved credentials.
type ClientFactory func(creds credentials.Credentials) GenerationClient

// ArtifactLocator correlates a completion signal with an output file.
type ArtifactLocator interface {
	Locate(preferred string) (string, error)
}

// NewClientFactory adapts the genclient package to the per-job factory.
func NewClientFactory(opts genclient.Options) ClientFactory {
	return func(creds credentials.Credentials) GenerationClient {
		return remoteClient{inner: genclient.New(creds, opts)}
	}
}

type remoteClient struct {
	inner *genclient.Client
}

func (r remoteClient) Submit(ctx context.Context, promptText, params string) (Submission, error) {
	sub, err := r.inner.Submit(ctx, promptText, params)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Config carries the tunables of the pipeline.
type Config struct {
	// StyleParams is the fixed parameter string appended to every submission.
	StyleParams string
	// PromptLanguage is the language prompts are authored in; requests whose
	// locale differs are routed through the translator toward it.
	PromptLanguage string
	// Pacing bounds for the randomized pre-submission delay. The delay keeps
	// bursts of requests from presenting as an obviously automated client to
	// the remote service.
	PacingMinDelay time.Duration
	PacingMaxDelay time.Duration
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Jobs        domain.JobRepository
	Recipes     domain.RecipeRepository
	Credentials CredentialSource
	Filter      ContentFilter
	Translator  Translator // optional
	Uploader    Uploader   // optional
	NewClient   ClientFactory
	Artifacts   ArtifactLocator
	Logger      infra.Logger
}

// Pipeline executes generation requests.
type Pipeline struct {
	jobs       domain.JobRepository
	recipes    domain.RecipeRepository
	creds      CredentialSource
	filter     ContentFilter
	translator Translator
	uploader   Uploader
	newClient  ClientFactory
	artifacts  ArtifactLocator
	logger     infra.Logger
	cfg        Config

	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.PromptLanguage == "" {
		cfg.PromptLanguage = "en"
	}
	if cfg.PacingMaxDelay < cfg.PacingMinDelay {
		cfg.PacingMaxDelay = cfg.PacingMinDelay
	}
	return &Pipeline{
		jobs:       deps.Jobs,
		recipes:    deps.Recipes,
		creds:      deps.Credentials,
		filter:     deps.Filter,
		translator: deps.Translator,
		uploader:   deps.Uploader,
		newClient:  deps.NewClient,
		artifacts:  deps.Artifacts,
		logger:     deps.Logger,
		cfg:        cfg,
		sleep:      sleepCtx,
	}
}

// Request describes one generation call.
type Request struct {
	RecipeID string
	// CustomPrompt bypasses the prompt builder but not the content filter.
	CustomPrompt string
	// ReferenceImage is a public URL, a local file path, or an inline base64
	// payload. Non-public references are published through the uploader first.
	ReferenceImage string
	// Locale is the caller's detected language. When it differs from the
	// pipeline's prompt language the assembled prompt is translated.
	Locale string
	// Credentials optionally carries request-scoped credentials, the highest
	// priority source in the resolver chain.
	Credentials *credentials.Override
}

// Result is the terminal outcome returned to the caller.
type Result struct {
	Success     bool     `json:"success"`
	JobID       string   `json:"job_id,omitempty"`
	ImagePath   string   `json:"image_path,omitempty"`
	Error       string   `json:"error,omitempty"`
	Remediation []string `json:"remediation,omitempty"`
}

// Generate runs one request through to a terminal state. Whatever happens
// mid-flight, a job row that was created is finalized before return and the
// superseding sweep runs, so a recipe can never stay stuck looking
// "in progress" after the call ends.
func (p *Pipeline) Generate(ctx context.Context, req Request) Result {
	log := p.logger.With().Str("recipe_id", req.RecipeID).Logger()

	creds, err := p.creds.Resolve(ctx, req.Credentials)
	if err != nil {
		if errors.Is(err, credentials.ErrNotConfigured) {
			log.Warn().Msg("pipeline: no generation credentials")
			return Result{Error: err.Error(), Remediation: credentials.RemediationSteps()}
		}
		log.Error().Err(err).Msg("pipeline: credential resolution failed")
		return Result{Error: "resolve credentials: " + err.Error()}
	}
	log = log.With().Str("credential_source", string(creds.Source)).Logger()

	promptText, err := p.assemblePrompt(ctx, log, req)
	if err != nil {
		log.Error().Err(err).Msg("pipeline: prompt assembly failed")
		return Result{Error: err.Error()}
	}

	filtered := p.filter.Filter(promptText)

	// Regenerate semantics: a new request always wins over a stale unfinished
	// one. Clearing and inserting are two statements, so a back-to-back pair
	// of requests can race here; the sweep below bounds the damage.
	if _, err := p.jobs.ClearActive(ctx, req.RecipeID, domain.SupersededReason); err != nil {
		log.Error().Err(err).Msg("pipeline: clearing active jobs failed")
		return Result{Error: "clear active jobs: " + err.Error()}
	}

	job := &domain.ImageJob{
		ID:       uuid.NewString(),
		RecipeID: req.RecipeID,
		Prompt:   promptText,
		Status:   domain.JobStatusPending,
	}
	if filtered.OK {
		job.Prompt = filtered.Filtered
		job.FilterChanges = filtered.Changes
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		log.Error().Err(err).Msg("pipeline: job creation failed")
		return Result{Error: "create job: " + err.Error()}
	}
	log = log.With().Str("job_id", job.ID).Logger()

	result := p.run(ctx, log, job, creds, filtered)

	// The sweep after every terminal outcome bounds how long a lost race can
	// keep a stale row visible as in-progress.
	if _, err := p.jobs.SupersedeOthers(ctx, req.RecipeID, job.ID); err != nil {
		log.Error().Err(err).Msg("pipeline: superseding sweep failed")
	}

	return result
}

// run takes a created job to its terminal state. It never returns without
// finalizing the row, panics included.
func (p *Pipeline) run(ctx context.Context, log infra.Logger, job *domain.ImageJob, creds credentials.Credentials, filtered prompt.Result) (res Result) {
	res.JobID = job.ID

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("internal error: %v", r)
			log.Error().Str("panic", fmt.Sprint(r)).Msg("pipeline: recovered mid-generation")
			p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", reason)
			res = Result{JobID: job.ID, Error: reason}
		}
	}()

	if !filtered.OK {
		log.Warn().Str("reason", filtered.Reason).Msg("pipeline: prompt rejected by content filter")
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", filtered.Reason)
		res.Error = filtered.Reason
		return res
	}

	if err := p.pace(ctx); err != nil {
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", "canceled before submission")
		res.Error = "canceled before submission"
		return res
	}

	client := p.newClient(creds)
	sub, err := client.Submit(ctx, job.Prompt, p.cfg.StyleParams)
	if err != nil {
		reason := "generation service: " + err.Error()
		log.Error().Err(err).Msg("pipeline: submission failed")
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", reason)
		res.Error = reason
		return res
	}

	if err := p.jobs.MarkGenerating(ctx, job.ID); err != nil {
		// The row vanished or a newer request already superseded it. The remote
		// request keeps running, but this job no longer owns the outcome.
		reason := "job no longer pending: " + err.Error()
		log.Warn().Err(err).Msg("pipeline: lost job ownership after submission")
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", reason)
		res.Error = reason
		return res
	}

	remote, err := sub.Await(ctx)
	if err != nil {
		reason := "generation service: " + err.Error()
		log.Error().Err(err).Msg("pipeline: await failed")
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", "", reason)
		res.Error = reason
		return res
	}
	log.Info().Str("correlation_id", remote.CorrelationID).Msg("pipeline: generation completed remotely")

	path, err := p.artifacts.Locate(remote.ArtifactName)
	if err != nil {
		// The service reported success but nothing locatable landed. Treated as
		// a failed job rather than a completed one with an unknown path.
		if !errors.Is(err, artifact.ErrNotFound) {
			log.Error().Err(err).Msg("pipeline: artifact lookup failed")
		}
		p.finalize(ctx, log, job.ID, domain.JobStatusFailed, "", remote.CorrelationID, domain.ErrArtifactNotFound.Error())
		res.Error = domain.ErrArtifactNotFound.Error()
		return res
	}

	p.finalize(ctx, log, job.ID, domain.JobStatusCompleted, path, remote.CorrelationID, "")
	log.Info().Str("image_path", path).Msg("pipeline: job completed")

	res.Success = true
	res.ImagePath = path
	return res
}

func (p *Pipeline) finalize(ctx context.Context, log infra.Logger, jobID string, status domain.JobStatus, imagePath, correlationID, reason string) {
	if err := p.jobs.Finalize(ctx, jobID, status, imagePath, correlationID, reason); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("pipeline: finalize failed")
	}
}

// assemblePrompt produces the text handed to the content filter: built from
// the recipe (or taken verbatim from the caller), prefixed with a publishable
// reference image, translated toward the prompt language when needed.
func (p *Pipeline) assemblePrompt(ctx context.Context, log infra.Logger, req Request) (string, error) {
	refURL := p.resolveReference(ctx, log, req.ReferenceImage)

	var text string
	if custom := strings.TrimSpace(req.CustomPrompt); custom != "" {
		text = custom
		if refURL != "" && !strings.HasPrefix(text, refURL) {
			text = refURL + " " + text
		}
	} else {
		recipe, err := p.recipes.GetByID(ctx, req.RecipeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", fmt.Errorf("recipe %s not found", req.RecipeID)
			}
			return "", fmt.Errorf("load recipe: %w", err)
		}
		text = prompt.Build(recipe, refURL)
	}

	locale := strings.TrimSpace(req.Locale)
	if p.translator != nil && locale != "" && !strings.EqualFold(locale, p.cfg.PromptLanguage) {
		text = p.translator.Translate(ctx, text, p.cfg.PromptLanguage)
	}
	return text, nil
}

// resolveReference turns whatever the caller supplied into a public URL, or
// "" when that is impossible. Upload failures drop the reference instead of
// failing the job.
func (p *Pipeline) resolveReference(ctx context.Context, log infra.Logger, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if p.uploader == nil {
		log.Warn().Msg("pipeline: no uploader configured, dropping reference image")
		return ""
	}
	publicURL, err := p.uploader.Upload(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: reference upload failed, continuing without it")
		return ""
	}
	return publicURL
}

// pace sleeps a randomized interval inside the configured bounds before
// submission.
func (p *Pipeline) pace(ctx context.Context) error {
	if p.cfg.PacingMaxDelay <= 0 {
		return ctx.Err()
	}
	delay := p.cfg.PacingMinDelay
	if span := p.cfg.PacingMaxDelay - p.cfg.PacingMinDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	return p.sleep(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
