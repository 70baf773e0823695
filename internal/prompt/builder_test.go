package prompt

import (
	"strings"
	"testing"

	"recipeshot/internal/domain"
)

func TestBuildReferenceURLComesFirst(t *testing.T) {
	recipe := &domain.Recipe{
		Name:            "Lemon Risotto",
		IngredientsJSON: []byte(`["arborio rice","lemon","parmesan","butter"]`),
	}

	got := Build(recipe, "https://img.example/ref.png")

	if !strings.HasPrefix(got, "https://img.example/ref.png ") {
		t.Fatalf("prompt must start with the reference URL followed by a space: %q", got)
	}
	if strings.Count(got, "https://img.example/ref.png") != 1 {
		t.Fatalf("reference URL must appear exactly once: %q", got)
	}
}

func TestBuildLimitsIngredients(t *testing.T) {
	recipe := &domain.Recipe{
		Name:            "Minestrone",
		IngredientsJSON: []byte(`["beans","tomato","celery","carrot","onion"]`),
	}

	got := Build(recipe, "")

	for _, want := range []string{"beans", "tomato", "celery"} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing ingredient %q: %s", want, got)
		}
	}
	for _, unwanted := range []string{"carrot", "onion"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("prompt should carry only the first three ingredients, found %q: %s", unwanted, got)
		}
	}
}

func TestBuildParsesIngredientObjects(t *testing.T) {
	recipe := &domain.Recipe{
		Name:            "Pancakes",
		IngredientsJSON: []byte(`[{"name":"flour","amount":"200g"},{"name":"milk"}]`),
	}

	got := Build(recipe, "")

	if !strings.Contains(got, "flour and milk") {
		t.Fatalf("object-shaped ingredients should still be joined naturally: %s", got)
	}
}

func TestBuildDegradesOnBadIngredientData(t *testing.T) {
	recipe := &domain.Recipe{
		Name:            "Mystery Stew",
		IngredientsJSON: []byte(`{not json`),
	}

	got := Build(recipe, "")

	if !strings.Contains(got, "Mystery Stew") {
		t.Fatalf("prompt must keep the recipe name: %s", got)
	}
	if strings.Contains(got, " with ") {
		t.Fatalf("unparseable ingredients must be omitted, not guessed: %s", got)
	}
	if !strings.Contains(got, "food photography") {
		t.Fatalf("style qualifiers must survive degradation: %s", got)
	}
}

func TestBuildStyleQualifiersAppended(t *testing.T) {
	got := Build(&domain.Recipe{Name: "Toast"}, "")

	if strings.Index(got, "Toast") > strings.Index(got, "food photography") {
		t.Fatalf("style qualifiers must follow the description: %s", got)
	}
}
