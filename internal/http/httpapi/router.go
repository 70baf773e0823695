package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"recipeshot/internal/http/handlers"
	"recipeshot/internal/middleware"
)

// Options carry the router tunables that come from config.
type Options struct {
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	AllowedOrigins  []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Locale(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/recipes/{recipe_id}", func(r chi.Router) {
		// Generation is rate limited per client; reads are not.
		generate := r
		if opts.RateLimitPerMin > 0 {
			generate = r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		generate.Post("/image", app.GenerateImage)

		r.Get("/image/status", app.ImageStatus)
		r.Get("/images/archive", app.ArchiveImages)
	})

	r.Get("/v1/jobs/{job_id}", app.GetJob)

	return r
}
