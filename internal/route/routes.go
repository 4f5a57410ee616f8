package route

import (
	"net/http"
	"os"
	"path/filepath"

	"helmetwatch/internal/config"
	"helmetwatch/internal/handler"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/middleware"
	"helmetwatch/internal/service"

	"github.com/gorilla/mux"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

func fileServer(prefix, dir string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the router with request logging and authentication.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()
	violations := manager.GetViolationRepository()
	store := manager.GetViolationStore()

	// Static files
	r.PathPrefix("/static/").Handler(fileServer("/static/", "static"))
	r.PathPrefix("/violations/").Handler(fileServer("/violations/", store.Dir()))
	r.PathPrefix("/uploads/").Handler(fileServer("/uploads/", cfg.UploadDirectory))

	// Upload and detect
	r.HandleFunc("/detect", handler.DetectHandler(manager, logger)).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/view", handler.ViewWebsocketHandler(manager, logger))

	api.HandleFunc("/violations", handler.ListViolationsHandler(violations, logger)).Methods(http.MethodGet)
	api.HandleFunc("/violations", handler.CreateViolationHandler(violations, store, logger)).Methods(http.MethodPost)
	api.HandleFunc("/violations/{id:[0-9]+}", handler.GetViolationHandler(violations, logger)).Methods(http.MethodGet)
	api.HandleFunc("/violations/{id:[0-9]+}", handler.UpdateViolationHandler(violations, logger)).Methods(http.MethodPut)
	api.HandleFunc("/violations/{id:[0-9]+}", handler.DeleteViolationHandler(violations, store, logger)).Methods(http.MethodDelete)

	api.HandleFunc("/system/control", handler.ActiveSessionHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/system/control", handler.SystemControlHandler(manager, logger)).Methods(http.MethodPost)
	api.HandleFunc("/system/status", handler.SystemStatusHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/system/settings", handler.GetSettingsHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/system/settings", handler.UpdateSettingsHandler(manager, logger)).Methods(http.MethodPost)

	// Log endpoints
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Auth endpoints
	r.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	r.PathPrefix("/").HandlerFunc(dynamicHTMLHandler)

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.AuthMiddleware)
	return r
}
