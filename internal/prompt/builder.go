package prompt

import (
	"fmt"
	"strings"

	"recipeshot/internal/domain"
)

// styleQualifiers are appended to every built prompt. They steer the service
// toward editorial food photography rather than illustration.
const styleQualifiers = "professional food photography, soft natural lighting, shallow depth of field, rustic tableware, appetizing styled presentation"

// maxIngredients bounds how much of the ingredient list reaches the prompt;
// anything past the first few adds noise, not signal.
const maxIngredients = 3

// Build assembles the generation prompt for a recipe. A reference image URL,
// when present, is PREPENDED: the generation service reads an image reference
// only when it appears before the text modifiers, and a misplaced one silently
// degrades output instead of erroring. Missing or unparseable ingredient data
// degrades to a name-only prompt.
func Build(recipe *domain.Recipe, referenceImageURL string) string {
	var b strings.Builder

	name := "a home-cooked dish"
	if recipe != nil && strings.TrimSpace(recipe.Name) != "" {
		name = strings.TrimSpace(recipe.Name)
	}
	b.WriteString(fmt.Sprintf("A photorealistic photo of %s", name))

	if ingredients := headIngredients(recipe); len(ingredients) > 0 {
		b.WriteString(" with ")
		b.WriteString(joinNatural(ingredients))
	}

	b.WriteString(", ")
	b.WriteString(styleQualifiers)

	text := b.String()
	if url := strings.TrimSpace(referenceImageURL); url != "" {
		return url + " " + text
	}
	return text
}

func headIngredients(recipe *domain.Recipe) []string {
	if recipe == nil {
		return nil
	}
	ingredients := recipe.Ingredients()
	if len(ingredients) > maxIngredients {
		ingredients = ingredients[:maxIngredients]
	}
	return ingredients
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
