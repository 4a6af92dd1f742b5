package handler

import (
	"net/http"

	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/service/offers"
)

// OffersHandler looks up ?tag= against the current offer index.
// A missing tag, an unknown tag and an index that is still loading all answer with an empty list.
func OffersHandler(store *offers.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := r.URL.Query().Get("tag")
		writeJSON(w, http.StatusOK, dto.OffersResponse{
			Tag:    tag,
			Offers: store.Lookup(tag),
		}, logger)
	}
}

// OffersStatusHandler reports whether the offer index has loaded.
func OffersStatusHandler(store *offers.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx := store.Index()
		status := dto.OffersStatus{
			Settled: store.Settled(),
			Tags:    idx.Len(),
			Labels:  idx.Tags(),
		}
		if err := store.Err(); err != nil {
			status.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, status, logger)
	}
}
