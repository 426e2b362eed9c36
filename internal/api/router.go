package api

import (
	"net/http"
	"time"

	"proctorhub/internal/api/handler"
	"proctorhub/internal/api/middleware"
	"proctorhub/internal/common"
	"proctorhub/internal/common/security"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Submission *handler.SubmissionHandler
	Analysis   *handler.AnalysisHandler
	Review     *handler.ReviewHandler
	Dashboard  *handler.DashboardHandler
	TextTools  *handler.TextToolsHandler
}

func NewRouter(jwt *security.JWT, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(jwt.TokenAuth))
				r.Use(middleware.Authenticator)
				r.Get("/me", h.Auth.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwt.TokenAuth))
			r.Use(middleware.Authenticator)

			r.Route("/submissions", func(r chi.Router) {
				r.Post("/", h.Submission.Upload)
				r.Route("/{submissionID}", func(r chi.Router) {
					r.Get("/", h.Submission.Get)
					r.Delete("/", h.Submission.Delete)

					r.Post("/analyze-code", h.Analysis.AnalyzeCode)
					r.Post("/check-plagiarism", h.Analysis.CheckPlagiarism)
					r.Post("/analyze-all", h.Analysis.AnalyzeAll)
					r.Get("/code-analysis", h.Analysis.CodeAnalysisReport)
					r.Get("/plagiarism-report", h.Analysis.PlagiarismReport)
				})
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", h.Review.Create)
				r.Get("/submission/{submissionID}", h.Review.ListBySubmission)
				r.Post("/{reviewID}/complete", h.Review.Complete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.TeacherOnly)
				r.Get("/students/{studentID}/submissions", h.Submission.ListByStudent)
				r.Get("/stats/overview", h.Dashboard.Overview)
			})

			r.Get("/dashboard/student/{studentID}", h.Dashboard.Student)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/paraphrase", h.TextTools.Paraphrase)
				r.Post("/grammar-check", h.TextTools.GrammarCheck)
				r.Post("/humanize", h.TextTools.Humanize)
				r.Post("/detect-ai", h.TextTools.DetectAI)
			})
		})
	})

	return r
}
