package repo

import (
	"context"

	"recipeshot/internal/domain"
	"recipeshot/internal/infra"
	"recipeshot/internal/sqlinline"
)

// RecipeRepositoryPG implements domain.RecipeRepository on PostgreSQL. The
// pipeline only reads recipes; the authoring side of the table belongs to
// other services.
type RecipeRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRecipeRepository creates a new recipe repository.
func NewRecipeRepository(sql infra.SQLExecutor) *RecipeRepositoryPG {
	return &RecipeRepositoryPG{sql: sql}
}

// GetByID fetches the prompt-relevant fields of a recipe.
func (r *RecipeRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRecipe, id)
	var recipe domain.Recipe
	if err := row.Scan(
		&recipe.ID,
		&recipe.Name,
		&recipe.IngredientsJSON,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

var _ domain.RecipeRepository = (*RecipeRepositoryPG)(nil)
