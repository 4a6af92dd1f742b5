package dto

import "offerlens/internal/model"

// Display message types.
const (
	DisplayClear = "clear"
	DisplayShow  = "show"
)

// NoOffersMessage is shown instead of cards when nothing matched.
const NoOffersMessage = "No offers found for this item."

// DisplayMessage is pushed to display clients over the websocket.
type DisplayMessage struct {
	Type    string            `json:"type"`
	Label   string            `json:"label,omitempty"`
	Offers  []model.OfferCard `json:"offers,omitempty"`
	Image   string            `json:"image,omitempty"`
	Empty   bool              `json:"empty,omitempty"`
	Message string            `json:"message,omitempty"`
}
