package domain

import "context"

// JobRepository defines persistence for image jobs. All job mutation in the
// system goes through these operations.
type JobRepository interface {
	// Create inserts a new row at status pending.
	Create(ctx context.Context, job *ImageJob) error
	// MarkGenerating transitions pending -> generating and errors when the row
	// is missing or no longer pending.
	MarkGenerating(ctx context.Context, jobID string) error
	// Finalize transitions a row to a terminal status and verifies the write.
	// Rows already terminal are left untouched without error.
	Finalize(ctx context.Context, jobID string, status JobStatus, imagePath, correlationID, errMsg string) error
	// ClearActive fails out every pending/generating row for the recipe,
	// returning how many rows were affected.
	ClearActive(ctx context.Context, recipeID, reason string) (int64, error)
	// SupersedeOthers fails out every pending/generating row for the recipe
	// except keepJobID.
	SupersedeOthers(ctx context.Context, recipeID, keepJobID string) (int64, error)
	GetByID(ctx context.Context, jobID string) (*ImageJob, error)
	ListByRecipe(ctx context.Context, recipeID string) ([]ImageJob, error)
	HasActive(ctx context.Context, recipeID string) (bool, error)
}

// RecipeRepository provides read access to the recipe fields the pipeline
// needs.
type RecipeRepository interface {
	GetByID(ctx context.Context, id string) (*Recipe, error)
}
