package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groovebox/config"
	"groovebox/core/audio"
	"groovebox/core/ingest"
	"groovebox/logger"
	"groovebox/repository"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Create necessary directories if they don't exist. The catalog document
	// itself is deliberately not created: its absence is a state the health
	// endpoint reports.
	ensureDirExists(cfg.DataDir)
	ensureDirExists(cfg.UploadDir)
	ensureDirExists(cfg.AudioUploadDir)
	ensureDirExists(cfg.CoverUploadDir)
	ensureDirExists(cfg.StagingDir)

	// Watch the catalog for writes from outside this process. Best-effort.
	watcher, err := repository.WatchCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Warn("Catalog watcher unavailable", logger.ErrorField(err))
	} else {
		defer watcher.Close()
	}

	songRepo := repository.NewJSONSongRepository(cfg.CatalogPath, watcher)
	audioProcessor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
	ingestor := ingest.NewIngestor(songRepo, audioProcessor, cfg.AudioUploadDir, cfg.CoverUploadDir, cfg.StagingDir)

	apiHandler := NewAPIHandler(songRepo, ingestor, cfg)

	router := mux.NewRouter()

	// CORS middleware: the player UI may be served from another origin.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// API endpoints
	router.HandleFunc("/api/health", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/upload", apiHandler.UploadSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/youtube", apiHandler.ImportYouTubeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", apiHandler.GetSongHandler).Methods(http.MethodGet)

	// Static asset serving, mapped straight onto the upload directories.
	audioFileServer := http.FileServer(http.Dir(cfg.AudioUploadDir))
	router.PathPrefix("/audio/").Handler(http.StripPrefix("/audio/", audioFileServer))
	coverFileServer := http.FileServer(http.Dir(cfg.CoverUploadDir))
	router.PathPrefix("/covers/").Handler(http.StripPrefix("/covers/", coverFileServer))

	// Frontend UI serving
	uiFileServer := http.FileServer(http.Dir(cfg.WebAppDir))
	router.PathPrefix("/").Handler(uiFileServer)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.ServerAddr),
			logger.String("catalog", cfg.CatalogPath))
		logger.Info("List songs via GET /api/songs, upload via POST /api/songs/upload")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory", logger.String("path", path), logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory", logger.String("path", path), logger.ErrorField(err))
	}
}
