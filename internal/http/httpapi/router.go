package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lucidify/internal/http/handlers"
	"lucidify/internal/infra"
	"lucidify/internal/middleware"
)

type RouterOptions struct {
	Logger         infra.Logger
	AllowedOrigins []string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/dream", app.DreamAnalyze)
		r.Post("/dream/generate-video", app.DreamVideoStream)
		r.Post("/dream/generate-video/sync", app.DreamVideoSync)
		r.Post("/chat", app.Chat)
	})

	return r
}
