// Route registration and go-chi router setup.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/deepchat/internal/api/handlers"
	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/config"
	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
	"github.com/matiasleandrokruk/deepchat/internal/infra/runstore"
	"github.com/matiasleandrokruk/deepchat/internal/infra/uploads"
)

// Deps bundles the wired services the router exposes over HTTP.
type Deps struct {
	Config   *config.Manager
	Provider llm.Provider
	Orch     *task.Orchestrator
	Tasks    *task.Registry
	Subs     *task.Subscribers
	RunStore *runstore.Store
	Uploads  *uploads.Store
	History  handlers.HistoryReader
	Dirs     handlers.SelfTestDirs
	Log      *slog.Logger
}

// NewRouter creates the chi router with all routes and global middleware.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Liveness endpoints, unauthenticated, used by probes and the frontend.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Deepchat API service is running"}`)) //nolint:errcheck
	})

	chatHandler := handlers.NewChatHandler(deps.Orch)
	uploadHandler := handlers.NewUploadHandler(deps.Orch, deps.Uploads, deps.Config)
	resultHandler := handlers.NewResultHandler(deps.RunStore, deps.Tasks, deps.Orch, deps.Log)
	configHandler := handlers.NewConfigHandler(deps.Config)
	selfTestHandler := handlers.NewSelfTestHandler(deps.Provider, deps.Dirs)
	historyHandler := handlers.NewHistoryHandler(deps.History)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`)) //nolint:errcheck
		})

		r.Post("/chat", chatHandler.Chat)              // POST /api/chat
		r.Post("/upload", uploadHandler.Upload)        // POST /api/upload
		r.Get("/result/{task_id}", resultHandler.Result)
		r.Get("/test", selfTestHandler.Test)
		r.Get("/config", configHandler.Get)
		r.Post("/config", configHandler.Update)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", historyHandler.ListConversations)    // GET /api/conversations
			r.Get("/{id}/messages", historyHandler.ListMessages)
		})
	})

	// Per-task progress channel.
	wsHandler := handlers.NewWSHandler(deps.Tasks, deps.Subs, deps.Log)
	r.Get("/ws/{task_id}", wsHandler.Serve)

	return r
}
