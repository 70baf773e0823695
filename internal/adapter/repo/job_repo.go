package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"recipeshot/internal/domain"
	"recipeshot/internal/infra"
	"recipeshot/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new row at status pending.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.ImageJob) error {
	changes, err := marshalChanges(job.FilterChanges)
	if err != nil {
		return fmt.Errorf("encode filter changes: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertImageJob, job.ID, job.RecipeID, job.Prompt, changes)
	return err
}

// MarkGenerating transitions pending -> generating. A silent data-layer miss
// (row gone, or no longer pending) surfaces as an error instead of letting
// the pipeline await a job it does not own.
func (r *JobRepositoryPG) MarkGenerating(ctx context.Context, jobID string) error {
	row := r.sql.QueryRow(ctx, sqlinline.QMarkJobGenerating, jobID)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			status, statusErr := r.status(ctx, jobID)
			if statusErr != nil {
				return fmt.Errorf("job %s: %w", jobID, statusErr)
			}
			return fmt.Errorf("job %s: expected pending, found %s", jobID, status)
		}
		return err
	}
	return nil
}

// Finalize transitions to a terminal status and re-reads the row to verify
// the write landed. A row some other request already finalized is left as is:
// the directory-scan fallback can misattribute artifacts under concurrency,
// so late finalize calls must be harmless.
func (r *JobRepositoryPG) Finalize(ctx context.Context, jobID string, status domain.JobStatus, imagePath, correlationID, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("job %s: %s is not a terminal status", jobID, status)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeJob, jobID, status, imagePath, correlationID, errMsg)
	if err != nil {
		return err
	}

	got, err := r.status(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job %s: verify finalize: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		if got.Terminal() {
			return nil
		}
		return fmt.Errorf("job %s: finalize to %s did not apply, row is %s", jobID, status, got)
	}
	if got != status {
		return fmt.Errorf("job %s: finalized to %s but row reads %s", jobID, status, got)
	}
	return nil
}

// ClearActive fails out every pending/generating row for the recipe.
func (r *JobRepositoryPG) ClearActive(ctx context.Context, recipeID, reason string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QClearActiveJobs, recipeID, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SupersedeOthers fails out every other active row for the recipe.
func (r *JobRepositoryPG) SupersedeOthers(ctx context.Context, recipeID, keepJobID string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSupersedeOtherJobs, recipeID, keepJobID, domain.SupersededReason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.ImageJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByRecipe returns every job row for a recipe, newest first.
func (r *JobRepositoryPG) ListByRecipe(ctx context.Context, recipeID string) ([]domain.ImageJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByRecipe, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ImageJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// HasActive reports whether a pending/generating row exists for the recipe.
func (r *JobRepositoryPG) HasActive(ctx context.Context, recipeID string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QHasActiveJob, recipeID)
	var active bool
	if err := row.Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// SweepStale fails out rows stuck in pending/generating longer than maxAge.
// Administrative safety net; the pipeline itself finalizes its own rows.
func (r *JobRepositoryPG) SweepStale(ctx context.Context, maxAge string, reason string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSweepStaleJobs, maxAge, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepositoryPG) status(ctx context.Context, jobID string) (domain.JobStatus, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobStatus, jobID)
	var status domain.JobStatus
	if err := row.Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return status, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.ImageJob, error) {
	var (
		job     domain.ImageJob
		changes []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.RecipeID,
		&job.Prompt,
		&changes,
		&job.CorrelationID,
		&job.ImagePath,
		&job.Status,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &job.FilterChanges); err != nil {
			return nil, fmt.Errorf("decode filter changes: %w", err)
		}
	}
	return &job, nil
}

func marshalChanges(changes []domain.FilterChange) ([]byte, error) {
	if changes == nil {
		changes = []domain.FilterChange{}
	}
	return json.Marshal(changes)
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
