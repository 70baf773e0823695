package prompt

import (
	"strings"
	"testing"
)

func TestFilterNoChangesIsSuccess(t *testing.T) {
	f := NewPhotographyFilter()

	res := f.Filter("A photorealistic photo of lemon risotto")

	if !res.OK {
		t.Fatalf("unexpected rejection: %s", res.Reason)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("expected no changes, got %v", res.Changes)
	}
	if res.Filtered != "A photorealistic photo of lemon risotto" {
		t.Fatalf("text must pass through untouched: %q", res.Filtered)
	}
}

func TestFilterSubstitutesFlaggedCulinaryTerms(t *testing.T) {
	f := NewPhotographyFilter()

	res := f.Filter("Grilled chicken breast with a bloody mary on the side")

	if !res.OK {
		t.Fatalf("unexpected rejection: %s", res.Reason)
	}
	if strings.Contains(strings.ToLower(res.Filtered), "breast") {
		t.Fatalf("flagged term survived: %q", res.Filtered)
	}
	if !strings.Contains(res.Filtered, "chicken fillet") {
		t.Fatalf("substitution missing: %q", res.Filtered)
	}
	if len(res.Changes) == 0 {
		t.Fatal("changes must record every substitution")
	}
}

func TestFilterRejectsBannedTerms(t *testing.T) {
	f := NewPhotographyFilter()

	res := f.Filter("add some gore to the plating")

	if res.OK {
		t.Fatal("banned term must reject the prompt")
	}
	if !strings.Contains(res.Reason, "gore") {
		t.Fatalf("reason should name the term: %q", res.Reason)
	}
}

func TestFilterWordBoundaries(t *testing.T) {
	f := NewPhotographyFilter()

	res := f.Filter("mushroom gorecipe sauce")

	if !res.OK {
		t.Fatalf("substring must not trigger rejection: %s", res.Reason)
	}
}
