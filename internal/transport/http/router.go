package http

import (
	"net/http"

	"exam-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the REST API, the live leaderboard socket and the health probe.
func NewRouter(h *Handler, ws *LeaderboardWS, auth *Authenticator, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	admin := requireRole(domain.RoleAdmin)
	student := requireRole(domain.RoleStudent)

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware)

		api.Get("/groups/{groupID}/tests", h.ListTests)
		api.With(admin).Post("/tests", h.CreateTest)

		api.Route("/tests/{testID}", func(tr chi.Router) {
			tr.Get("/", h.GetTest)
			tr.With(admin).Patch("/", h.UpdateTest)
			tr.With(admin).Delete("/", h.DeleteTest)
			tr.With(admin).Put("/questions", h.ReplaceQuestions)
			tr.With(admin).Post("/publish", h.PublishTest)
			tr.With(admin).Post("/start", h.StartTest)
			tr.With(admin).Post("/end", h.EndTest)
			tr.With(student).Post("/submissions", h.SubmitTest)
			tr.Get("/results", h.GetResults)
		})
	})

	r.With(auth.Middleware, admin).Get("/ws/tests/{testID}/leaderboard", ws.ServeWS)
	return r
}
