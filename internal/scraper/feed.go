package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"offerlens/internal/model"
)

// WriteFeed writes offers as {"data":[...]} to path. The file is replaced
// atomically so a running server never reads a half-written feed.
func WriteFeed(path string, offers []model.RawOffer) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".offers-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(model.Feed{Data: offers}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move feed into place: %w", err)
	}
	return nil
}
