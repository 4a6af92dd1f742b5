// Package offers turns the offers feed into a tag-keyed lookup table of offer cards.
package offers

import (
	"sort"

	"offerlens/internal/model"
)

// Index maps a detector label (tag) to the offer cards tagged with it.
// It is never mutated after Build returns.
type Index struct {
	byTag map[string][]model.OfferCard
}

// Build creates an Index from the feed. Offers without tags or without a
// thumbnail are skipped. Each remaining offer yields one card, appended under
// every one of its tags in feed order.
func Build(feed []model.RawOffer, baseURL string) *Index {
	idx := &Index{byTag: make(map[string][]model.OfferCard)}

	for _, offer := range feed {
		if len(offer.Tags) == 0 || len(offer.ThumbImage) == 0 {
			continue
		}

		card := model.OfferCard{
			Img:  offer.ThumbImage[0],
			Alt:  offer.Title + " - " + offer.Teaser,
			Href: baseURL + offer.Path,
		}

		for _, tag := range offer.Tags {
			idx.byTag[tag] = append(idx.byTag[tag], card)
		}
	}

	return idx
}

// Empty returns an Index with no tags.
func Empty() *Index {
	return &Index{byTag: map[string][]model.OfferCard{}}
}

// Lookup returns the cards stored under tag. An empty tag means nothing was
// detected. Unknown tags, the empty tag and a nil Index all give an empty slice.
func (idx *Index) Lookup(tag string) []model.OfferCard {
	if idx == nil || tag == "" {
		return []model.OfferCard{}
	}
	cards, ok := idx.byTag[tag]
	if !ok {
		return []model.OfferCard{}
	}
	return cards
}

// Tags returns every tag in the index, sorted.
func (idx *Index) Tags() []string {
	if idx == nil {
		return []string{}
	}
	tags := make([]string, 0, len(idx.byTag))
	for tag := range idx.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Len is the number of distinct tags.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byTag)
}
