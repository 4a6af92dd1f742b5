package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting of the server and the scraper.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	Password string `envconfig:"PASSWORD" default:"offerlens"`

	// Detection model (SSD MobileNet v1 trained on COCO).
	ModelPath          string  `envconfig:"MODEL_PATH" default:"models/frozen_inference_graph.pb"`
	ConfigPath         string  `envconfig:"MODEL_CONFIG_PATH" default:"models/ssd_mobilenet_v1_coco_2017_11_17.pbtxt"`
	DetectionThreshold float64 `envconfig:"DETECTION_THRESHOLD" default:"0.5" validate:"gt=0,lt=1"`

	// Offers feed: an http(s) URL or a local file path.
	OffersFeed   string        `envconfig:"OFFERS_FEED" default:"offers.json" validate:"required"`
	OfferBaseURL string        `envconfig:"OFFER_BASE_URL" default:"https://grameenphone.com" validate:"required,url"`
	FeedTimeout  time.Duration `envconfig:"FEED_TIMEOUT" default:"10s"`
	UserAgent    string        `envconfig:"USER_AGENT" default:"OfferLens/1.0"`

	// Capture pipeline.
	ProcessingWorkers int     `envconfig:"PROCESSING_WORKERS" default:"2" validate:"min=1,max=32"`
	QueueSize         int     `envconfig:"QUEUE_SIZE" default:"16" validate:"min=1"`
	MaxFrameBytes     int64   `envconfig:"MAX_FRAME_BYTES" default:"8388608" validate:"min=1024"`
	CaptureRPS        float64 `envconfig:"CAPTURE_RPS" default:"2" validate:"gt=0"`
	CaptureBurst      int     `envconfig:"CAPTURE_BURST" default:"4" validate:"min=1"`

	// Capture history.
	ImageDirectory           string        `envconfig:"IMAGE_DIR" default:"images"`
	DatabasePath             string        `envconfig:"DB_PATH" default:"data/captures.db"`
	ImageBufferLimit         int           `envconfig:"BUFFER_LIMIT" default:"10" validate:"min=1"`
	ImageBufferFlushInterval time.Duration `envconfig:"FLUSH_INTERVAL" default:"30s"`

	LogDirectory   string   `envconfig:"LOG_DIR" default:"logs"`
	StaticDir      string   `envconfig:"STATIC_DIR" default:"static"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Scraper settings (cmd/scraper).
	ScraperSourceURL string        `envconfig:"SCRAPER_SOURCE_URL" default:"https://bkwebsitethc.grameenphone.com/api/star-offers-list?star_status=all&star_offer_categories=all&offer_areas=all&search_offer=" validate:"required,url"`
	ScraperMaxPages  int           `envconfig:"SCRAPER_MAX_PAGES" default:"20" validate:"min=1"`
	ScraperRate      time.Duration `envconfig:"SCRAPER_RATE" default:"1s"`
}

// Load reads .env (when present) and the process environment into a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ImageDirectory = filepath.Clean(cfg.ImageDirectory)
	cfg.LogDirectory = filepath.Clean(cfg.LogDirectory)
	return &cfg, nil
}

// Validate checks value ranges and URL forms.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Field(), e.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}
