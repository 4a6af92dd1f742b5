package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Feed is the offers document: {"data": [...]}.
type Feed struct {
	Data []RawOffer `json:"data"`
}

// RawOffer is one element of the offers feed as published upstream.
type RawOffer struct {
	NID         OfferID  `json:"nid,omitempty"`
	Title       string   `json:"title"`
	Teaser      string   `json:"teaser,omitempty"`
	Path        string   `json:"path"`
	ThumbImage  []string `json:"thumb_image,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// OfferID is the upstream node id. The API sends it as a number or a string.
type OfferID string

// UnmarshalJSON accepts a number, a string or null.
func (id *OfferID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OfferID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("nid: %w", err)
		}
		*id = OfferID(n)
	}
	return nil
}

// MarshalJSON writes numeric ids as numbers and anything else as a string.
func (id OfferID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id OfferID) String() string {
	return string(id)
}

// OfferCard is the display-ready form of a RawOffer.
type OfferCard struct {
	Img  string `json:"img"`
	Alt  string `json:"alt"`
	Href string `json:"href"`
}
