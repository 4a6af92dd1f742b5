package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"offerlens/internal/logger"
	"offerlens/internal/model"
)

var (
	// ErrFeedStatus is returned when the feed server answers with a non-2xx status.
	ErrFeedStatus = errors.New("unexpected feed status")
	// ErrFeedMissingData is returned when the document has no "data" array.
	ErrFeedMissingData = errors.New("feed has no data array")
)

// Fetcher reads the offers feed from an http(s) URL or a local file.
type Fetcher struct {
	Source    string
	UserAgent string
	Client    *http.Client
	Logger    *logger.Logger
}

// NewFetcher creates a Fetcher for source with the given request timeout.
func NewFetcher(source, userAgent string, timeout time.Duration, logger *logger.Logger) *Fetcher {
	return &Fetcher{
		Source:    source,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
		Logger:    logger,
	}
}

// Fetch loads and decodes the whole feed. Offers that do not decode are
// skipped and counted in the log.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawOffer, error) {
	body, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	offers, skipped, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 && f.Logger != nil {
		f.Logger.Warning("Skipped %d malformed offers in %s", skipped, f.Source)
	}
	return offers, nil
}

func (f *Fetcher) open(ctx context.Context) (io.ReadCloser, error) {
	if !isRemote(f.Source) {
		file, err := os.Open(f.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to open feed file: %w", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d from %s", ErrFeedStatus, resp.StatusCode, f.Source)
	}

	return resp.Body, nil
}

// Decode parses a feed document of the form {"data": [...]}. Each offer is
// decoded on its own; the ones that fail are left out and counted in skipped.
// Only document-level problems are errors.
func Decode(r io.Reader) (offers []model.RawOffer, skipped int, err error) {
	elements, err := DataElements(r)
	if err != nil {
		return nil, 0, err
	}

	offers = make([]model.RawOffer, 0, len(elements))
	for _, raw := range elements {
		var offer model.RawOffer
		if json.Unmarshal(raw, &offer) != nil {
			skipped++
			continue
		}
		offers = append(offers, offer)
	}
	return offers, skipped, nil
}

// DataElements splits a {"data": [...]} document into its undecoded elements.
// A missing or null data field, or one that is not an array, is ErrFeedMissingData.
func DataElements(r io.Reader) ([]json.RawMessage, error) {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return nil, ErrFeedMissingData
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(doc.Data, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedMissingData, err)
	}
	return elements, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
