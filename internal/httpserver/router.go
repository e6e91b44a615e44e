package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/n3m01726/chattyChat/internal/config"
	"github.com/n3m01726/chattyChat/internal/giphy"
	"github.com/n3m01726/chattyChat/internal/presence"
	"github.com/n3m01726/chattyChat/internal/security"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/store/sqlite"
	"github.com/n3m01726/chattyChat/internal/upload"
	"github.com/n3m01726/chattyChat/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	hub *ws.Hub,
	registry *presence.Registry,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	files *upload.LocalStore,
	gifs *giphy.Client,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo, msgRepo, files)
	msgSvc := service.NewMessageService(msgRepo, userRepo, files)

	gateway := ws.NewGateway(hub, registry, msgSvc, cfg.HistoryLimit)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Public read surface; the room itself is open, credentials only
		// guard account-owned mutations
		r.Get("/users", handleListUsers(userSvc))
		r.Get("/users/{username}", handleGetProfile(userSvc))
		r.Get("/users/{username}/messages", handleMessagesByUser(msgSvc))
		r.Get("/members", handleListMembers(userSvc))
		r.Get("/messages", handleListMessages(msgSvc))
		r.Get("/messages/search", handleSearchMessages(msgSvc))
		r.Get("/stats", handleStats(msgSvc, registry))

		r.Route("/gifs", func(r chi.Router) {
			r.Get("/search", handleGifSearch(gifs))
			r.Get("/trending", handleGifTrending(gifs))
			r.Get("/{gifID}", handleGifByID(gifs))
		})

		r.Mount("/uploads", UploadRoutes(files))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Post("/auth/suspend", handleSuspend(authSvc))
			r.Get("/auth/me", handleMe())

			r.Patch("/users/me", handleUpdateProfile(userSvc))
			r.Post("/users/me/avatar", handleUploadAvatar(userSvc, files))
			r.Post("/users/me/banner", handleUploadBanner(userSvc, files))
			r.Delete("/users/me", handleDeleteAccount(userSvc))

			r.Post("/messages/attachment", handleUploadAttachment(files))
			r.Delete("/messages/{messageID}", handleDeleteMessage(msgSvc, hub))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", gateway.MakeHandler(cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
