package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"recipeshot/internal/domain"
)

// Result is the outcome of running a prompt through the content filter. A
// success with zero changes is a valid outcome.
type Result struct {
	OK       bool
	Filtered string
	Changes  []domain.FilterChange
	Reason   string
}

type substitution struct {
	pattern     *regexp.Regexp
	term        string
	replacement string
}

type rejection struct {
	pattern *regexp.Regexp
	term    string
}

// Filter sanitizes prompts against the generation service's moderation
// policy. Terms the moderation layer flags despite an innocent culinary
// meaning are rewritten; terms with no acceptable reading in any context
// reject the prompt outright.
type Filter struct {
	substitutions []substitution
	rejections    []rejection
}

// photographySubstitutions covers culinary vocabulary known to trip the
// service's moderation in an image context.
var photographySubstitutions = [][2]string{
	{"chicken breast", "chicken fillet"},
	{"breast", "fillet"},
	{"bloody", "deep red"},
	{"blood orange", "ruby orange"},
	{"naked cake", "unfrosted cake"},
	{"shot of", "small glass of"},
	{"shots", "small glasses"},
	{"smashed", "crushed"},
	{"flesh", "pulp"},
	{"bone-in", "on the bone"},
}

var photographyRejections = []string{
	"gore",
	"nsfw",
	"nude",
	"explicit",
	"violence",
}

// NewPhotographyFilter builds the policy used before every submission. A
// stricter policy would reject more of the substitution list instead of
// rewriting it.
func NewPhotographyFilter() *Filter {
	f := &Filter{}
	for _, pair := range photographySubstitutions {
		f.substitutions = append(f.substitutions, substitution{
			pattern:     wordPattern(pair[0]),
			term:        pair[0],
			replacement: pair[1],
		})
	}
	for _, term := range photographyRejections {
		f.rejections = append(f.rejections, rejection{
			pattern: wordPattern(term),
			term:    term,
		})
	}
	return f
}

// Filter applies the policy. Rejections are checked first: a prompt carrying
// a hard-banned term must never reach the generation service, so no amount of
// substitution can save it.
func (f *Filter) Filter(text string) Result {
	for _, r := range f.rejections {
		if r.pattern.MatchString(text) {
			return Result{
				OK:     false,
				Reason: fmt.Sprintf("prompt contains prohibited term %q", r.term),
			}
		}
	}

	filtered := text
	var changes []domain.FilterChange
	for _, s := range f.substitutions {
		if !s.pattern.MatchString(filtered) {
			continue
		}
		filtered = s.pattern.ReplaceAllString(filtered, s.replacement)
		changes = append(changes, domain.FilterChange{Term: s.term, Replacement: s.replacement})
	}

	return Result{OK: true, Filtered: filtered, Changes: changes}
}

func wordPattern(term string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.ToLower(term))
	escaped = strings.ReplaceAll(escaped, ` `, `\s+`)
	return regexp.MustCompile(`(?i)\b` + escaped + `\b`)
}
