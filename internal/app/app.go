package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"offerlens/internal/config"
	"offerlens/internal/logger"
	"offerlens/internal/repository/sqlite"
	"offerlens/internal/route"
	"offerlens/internal/service"
	"offerlens/internal/service/ai"
	"offerlens/internal/service/offers"
	"offerlens/internal/service/storage"
	"offerlens/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config           *config.Config
	logger           *logger.Logger
	db               *sqlite.DB
	detectorServices []*ai.DetectorService
	bufferService    *storage.BufferService
	hubService       *websocket.HubService
	offerStore       *offers.Store
	manager          *service.Manager
	server           *http.Server
}

func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture database: %w", err)
	}
	captureRepo := sqlite.NewCaptureRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	// gocv.Net is not goroutine safe: one network per worker.
	detectorServices := make([]*ai.DetectorService, 0, cfg.ProcessingWorkers)
	detectors := make([]service.Detector, 0, cfg.ProcessingWorkers)
	for i := 0; i < cfg.ProcessingWorkers; i++ {
		ds := ai.NewDetectorService(cfg.ModelPath, cfg.ConfigPath, cfg.DetectionThreshold, logger)
		detectorServices = append(detectorServices, ds)
		detectors = append(detectors, ds)
	}

	buffer := storage.NewBufferService(cfg.ImageDirectory, cfg.ImageBufferLimit, cfg.ImageBufferFlushInterval,
		logger, captureRepo, detectionRepo)
	hub := websocket.NewHubService(logger)
	store := offers.NewStore(offers.NewFetcher(cfg.OffersFeed, cfg.UserAgent, cfg.FeedTimeout, logger), cfg.OfferBaseURL, logger)

	mng := service.NewManager(detectors, store, hub, buffer, cfg.QueueSize, logger)

	router := route.SetupRoutes(route.Deps{
		Config:        cfg,
		Logger:        logger,
		Manager:       mng,
		Offers:        store,
		Displays:      hub,
		CaptureRepo:   captureRepo,
		DetectionRepo: detectionRepo,
	})

	return &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		detectorServices: detectorServices,
		bufferService:    buffer,
		hubService:       hub,
		offerStore:       store,
		manager:          mng,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts everything down in order:
// HTTP server, capture workers, background services, detectors, database.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	bg.Add(2)
	go func() {
		defer bg.Done()
		a.bufferService.Run(bgCtx)
	}()
	go func() {
		defer bg.Done()
		a.hubService.Run(bgCtx)
	}()

	// The index loads once in the background; captures before it settles see no offers.
	go a.offerStore.Load(ctx)

	a.logger.Info("🚀 OfferLens Server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("🏷️  Offers feed: %s", a.config.OffersFeed)
	a.logger.Info("📁 Captures: %s", a.config.ImageDirectory)
	a.logger.Info("🤖 AI Model: %s", a.config.ModelPath)

	serveErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("🛑 Shutting down...")
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown: %v", err)
	}

	a.manager.Stop()
	stopBackground()
	bg.Wait()

	for _, ds := range a.detectorServices {
		if err := ds.Close(); err != nil {
			a.logger.Error("Closing detector: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Closing database: %v", err)
	}

	a.logger.Info("👋 Server stopped")
	return runErr
}
