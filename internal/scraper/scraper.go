// Package scraper pulls the star-offers list from the upstream API and writes
// it out as an offers feed the server can load.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/service/offers"
)

var (
	// ErrDisallowed means robots.txt forbids fetching the source URL.
	ErrDisallowed = errors.New("source disallowed by robots.txt")
	// ErrMissingData means a page had no "data" array.
	ErrMissingData = offers.ErrFeedMissingData
)

// Options configures a Scraper.
type Options struct {
	SourceURL string
	UserAgent string
	MaxPages  int
	Interval  time.Duration
	Timeout   time.Duration
}

// Scraper walks the paginated offers API.
type Scraper struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// New creates a Scraper that waits Interval between requests.
func New(opts Options, logger *logger.Logger) *Scraper {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Scraper{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// upstreamOffer is an offer as the API returns it.
type upstreamOffer struct {
	NID        model.OfferID   `json:"nid"`
	Title      string          `json:"title"`
	Teaser     string          `json:"teaser"`
	Path       string          `json:"path"`
	ThumbImage []string        `json:"thumb_image"`
	Tags       []string        `json:"tags"`
	Metatag    json.RawMessage `json:"metatag"`
}

// Run checks robots.txt, then fetches pages until one comes back empty,
// stops adding new offers, or MaxPages is reached.
func (s *Scraper) Run(ctx context.Context) ([]model.RawOffer, error) {
	allowed, err := s.Allowed(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, s.opts.SourceURL)
	}

	result := []model.RawOffer{}
	seen := make(map[string]bool)

	for page := 1; page <= s.opts.MaxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, skipped, err := s.fetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if skipped > 0 {
			s.logger.Warning("Page %d: skipped %d malformed offers", page, skipped)
		}
		if len(batch)+skipped == 0 {
			s.logger.Info("Page %d is empty, done", page)
			break
		}

		added := 0
		for _, offer := range batch {
			key := offer.NID.String()
			if key == "" {
				key = offer.Path
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, offer)
			added++
		}
		s.logger.Info("Page %d: %d offers (%d new)", page, len(batch), added)

		if added == 0 && len(batch) > 0 {
			break
		}
	}

	return result, nil
}

// Allowed reports whether robots.txt lets this user agent fetch the source URL.
// An unreachable robots.txt allows everything.
func (s *Scraper) Allowed(ctx context.Context) (bool, error) {
	u, err := url.Parse(s.opts.SourceURL)
	if err != nil {
		return false, fmt.Errorf("invalid source url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Scheme+"://"+u.Host+"/robots.txt", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warning("robots.txt unreachable, assuming allowed: %v", err)
		return true, nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		s.logger.Warning("robots.txt unreadable, assuming allowed: %v", err)
		return true, nil
	}
	return robots.TestAgent(u.Path, s.opts.UserAgent), nil
}

// fetchPage returns the offers of one page and how many of its elements did not decode.
func (s *Scraper) fetchPage(ctx context.Context, page int) ([]model.RawOffer, int, error) {
	u, err := url.Parse(s.opts.SourceURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid source url: %w", err)
	}
	q := u.Query()
	q.Set("page_number", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	elements, err := offers.DataElements(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	batch := make([]model.RawOffer, 0, len(elements))
	for _, raw := range elements {
		var o upstreamOffer
		if json.Unmarshal(raw, &o) != nil {
			skipped++
			continue
		}
		batch = append(batch, model.RawOffer{
			NID:         o.NID,
			Title:       strings.TrimSpace(o.Title),
			Teaser:      StripHTML(o.Teaser),
			Path:        o.Path,
			ThumbImage:  o.ThumbImage,
			Tags:        o.Tags,
			Description: StripHTML(metaDescription(o.Metatag)),
		})
	}
	return batch, skipped, nil
}

// metaDescription pulls description out of the metatag object. The API sends
// an empty array instead of an object when an offer has no metatags.
func metaDescription(raw json.RawMessage) string {
	var meta struct {
		Description string `json:"description"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &meta) != nil {
		return ""
	}
	return meta.Description
}
