/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the client app

ROUTE GROUPS:
  /api/users                     User listing and creation
  /api/users/{userID}/*          Everything owned by one user
  /api/policy                    Economy constants in effect
  /api/scenarios/*               Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// origin list falls back to the local dev servers.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/policy", h.GetPolicy)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)

			r.Route("/{userID}", func(r chi.Router) {
				// Overview
				r.Get("/dashboard", h.GetDashboard)
				r.Get("/transactions", h.GetTransactions)

				// Tasks
				r.Post("/tasks", h.CommitTask)
				r.Put("/tasks/{taskID}", h.UpdateTask)
				r.Delete("/tasks/{taskID}", h.DeleteTask)
				r.Put("/recurring/{templateID}", h.UpdateRecurringTask)
				r.Delete("/recurring/{templateID}", h.DeleteRecurringTask)

				// Days and their instances
				r.Route("/days/{date}", func(r chi.Router) {
					r.Get("/", h.GetDay)
					r.Post("/instances/{instanceID}/complete", h.CompleteInstance)
					r.Post("/instances/{instanceID}/uncomplete", h.UncompleteInstance)
					r.Put("/instances/{instanceID}/time", h.SetInstanceTime)
				})

				// Wagering and goals
				r.Post("/odds", h.QuoteOdds)
				r.Post("/settlement", h.SettleBets)
				r.Put("/daily-goal", h.SetDailyGoal)

				r.Route("/side-quests", func(r chi.Router) {
					r.Get("/", h.ListSideQuests)
					r.Post("/", h.AddSideQuest)
					r.Put("/{questID}", h.UpdateSideQuest)
					r.Delete("/{questID}", h.DeleteSideQuest)
					r.Post("/{questID}/complete", h.CompleteSideQuest)
				})

				r.Route("/objectives", func(r chi.Router) {
					r.Get("/", h.ListObjectives)
					r.Post("/", h.AddObjective)
					r.Post("/{objectiveID}/complete", h.CompleteObjective)
					r.Post("/{objectiveID}/change", h.ChangeObjective)
					r.Delete("/{objectiveID}", h.DeleteObjective)
				})

				r.Route("/rewards", func(r chi.Router) {
					r.Get("/", h.ListRewards)
					r.Post("/", h.AddReward)
					r.Delete("/{rewardID}", h.DeleteReward)
					r.Post("/{rewardID}/purchase", h.PurchaseReward)
				})
				r.Get("/purchases", h.ListPurchases)

				r.Get("/diary/{date}", h.GetDiaryEntry)
				r.Put("/diary/{date}", h.SetDiaryEntry)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
