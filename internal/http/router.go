package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/rfmseg/internal/http/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/auth"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/export"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/importcsv"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	// JWTSecret enables bearer auth on every /api/v1 route when set.
	JWTSecret string
}

func New(
	opts Options,
	transactionsV1 *transaction.Handler,
	importV1 *importcsv.Handler,
	analysesV1 *analysis.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(auth.Middleware([]byte(opts.JWTSecret)))
		}

		r.Route("/transactions", transactionsV1.Routes)

		r.Route("/import", importV1.Routes)

		r.Route("/analyses", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			analysesV1.Routes(r)
		})

		r.Route("/export", exportV1.Routes)
	})

	return router
}
