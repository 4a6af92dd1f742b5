package dto

import "offerlens/internal/model"

// OffersResponse answers a tag lookup.
type OffersResponse struct {
	Tag    string            `json:"tag"`
	Offers []model.OfferCard `json:"offers"`
}

// OffersStatus describes the state of the offer index load.
type OffersStatus struct {
	Settled bool     `json:"settled"`
	Error   string   `json:"error,omitempty"`
	Tags    int      `json:"tags"`
	Labels  []string `json:"labels"`
}
