package offers

import (
	"context"
	"sync"
	"sync/atomic"

	"offerlens/internal/logger"
	"offerlens/internal/model"
)

// Source produces the raw offers feed.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawOffer, error)
}

// Store owns the session's Index. The index is loaded once; until then, and
// forever after a failed load, readers see an empty index.
type Store struct {
	source  Source
	baseURL string
	logger  *logger.Logger

	index atomic.Pointer[Index]
	once  sync.Once
	done  chan struct{}
	err   error
}

// NewStore creates a Store that will build its index from source.
func NewStore(source Source, baseURL string, logger *logger.Logger) *Store {
	s := &Store{
		source:  source,
		baseURL: baseURL,
		logger:  logger,
		done:    make(chan struct{}),
	}
	s.index.Store(Empty())
	return s
}

// Load fetches the feed and publishes the built index. Only the first call
// does any work; every call returns the outcome of that first load.
// A failed load is logged and leaves the index empty. It is not retried.
func (s *Store) Load(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.done)

		feed, err := s.source.Fetch(ctx)
		if err != nil {
			s.err = err
			s.logger.Error("Error loading offers: %v", err)
			return
		}

		idx := Build(feed, s.baseURL)
		s.index.Store(idx)
		s.logger.Info("🏷️  Offer index ready: %d offers, %d tags", len(feed), idx.Len())
	})
	return s.err
}

// Index returns the current index without blocking.
func (s *Store) Index() *Index {
	return s.index.Load()
}

// Lookup is shorthand for s.Index().Lookup(tag).
func (s *Store) Lookup(tag string) []model.OfferCard {
	return s.Index().Lookup(tag)
}

// Wait blocks until Load has settled or ctx is done, and returns the load error.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settled reports whether Load has finished, successfully or not.
func (s *Store) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the load error once settled, nil otherwise.
func (s *Store) Err() error {
	if !s.Settled() {
		return nil
	}
	return s.err
}
