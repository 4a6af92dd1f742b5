package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/cors"

	"offerlens/internal/config"
	"offerlens/internal/handler"
	"offerlens/internal/logger"
	"offerlens/internal/middleware"
	"offerlens/internal/repository"
	"offerlens/internal/service"
	"offerlens/internal/service/offers"
	"offerlens/internal/service/websocket"
)

// Deps is everything the routes need from the running application.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Manager       *service.Manager
	Offers        *offers.Store
	Displays      *websocket.HubService
	CaptureRepo   repository.CaptureRepository
	DetectionRepo repository.DetectionRepository
}

// dynamicHTMLHandler serves /path as {staticDir}/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with CORS and the authentication middleware.
func SetupRoutes(d Deps) http.Handler {
	cfg, log := d.Config, d.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Capture pipeline
	limiter := middleware.NewRateLimiter(cfg.CaptureRPS, cfg.CaptureBurst)
	mux.Handle("POST /api/capture", limiter.Limit(handler.CaptureHandler(d.Manager, cfg.MaxFrameBytes, log)))

	// Offers
	mux.HandleFunc("GET /api/offers", handler.OffersHandler(d.Offers, log))
	mux.HandleFunc("GET /api/offers/status", handler.OffersStatusHandler(d.Offers, log))

	// Display screens
	mux.HandleFunc("/api/display", handler.DisplayWebsocketHandler(d.Displays, cfg.AllowedOrigins, log))
	mux.HandleFunc("POST /api/display/close", handler.CloseDisplayHandler(d.Manager))

	// Capture history
	mux.HandleFunc("GET /api/captures", handler.GetCapturesHandler(log, d.CaptureRepo, d.DetectionRepo))
	mux.HandleFunc("GET /api/captures/labels", handler.GetCaptureLabelsHandler(log, d.DetectionRepo))
	mux.HandleFunc("GET /api/captures/view", handler.ViewCaptureHandler(cfg))
	mux.HandleFunc("DELETE /api/captures/delete", handler.DeleteCaptureHandler(cfg, log, d.CaptureRepo))
	mux.HandleFunc("POST /api/captures/clear", handler.ClearCapturesHandler(cfg, log, d.CaptureRepo))

	// Log endpoints
	for name, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("GET /logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("POST /logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /gallery -> {static}/gallery.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return corsHandler(middleware.AuthMiddleware(mux))
}
