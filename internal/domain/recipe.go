package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Recipe carries the fields the image pipeline reads. The wider recipe record
// (instructions, captions, publishing state) belongs to other services.
type Recipe struct {
	ID              string
	Name            string
	IngredientsJSON []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Ingredients parses the stored ingredient payload into plain names. The
// payload may be a JSON string array, an array of objects with a "name"
// field, or missing entirely; parse failures yield an empty slice so prompt
// assembly can degrade to the recipe name alone.
func (r *Recipe) Ingredients() []string {
	if r == nil || len(r.IngredientsJSON) == 0 {
		return nil
	}

	var names []string
	if err := json.Unmarshal(r.IngredientsJSON, &names); err == nil {
		return trimNonEmpty(names)
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(r.IngredientsJSON, &objects); err == nil {
		out := make([]string, 0, len(objects))
		for _, o := range objects {
			out = append(out, o.Name)
		}
		return trimNonEmpty(out)
	}

	return nil
}

func trimNonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
