package offers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/model"
)

const testBaseURL = "https://example.com"

func TestBuild_SingleOfferManyTags(t *testing.T) {
	feed := []model.RawOffer{{
		Title:      "A",
		Teaser:     "T",
		ThumbImage: []string{"img1.jpg", "img2.jpg"},
		Tags:       []string{"cup", "mug"},
		Path:       "/a",
	}}

	idx := Build(feed, testBaseURL)

	want := []model.OfferCard{{Img: "img1.jpg", Alt: "A - T", Href: "https://example.com/a"}}
	assert.Equal(t, want, idx.Lookup("cup"))
	assert.Equal(t, want, idx.Lookup("mug"))
	assert.Equal(t, []string{"cup", "mug"}, idx.Tags())
}

func TestBuild_SkipsOffersWithoutThumbnailOrTags(t *testing.T) {
	feed := []model.RawOffer{
		{Title: "B", ThumbImage: []string{}, Tags: []string{"cup"}, Path: "/b"},
		{Title: "C", ThumbImage: []string{"c.jpg"}, Tags: []string{}, Path: "/c"},
		{Title: "D", ThumbImage: nil, Tags: nil, Path: "/d"},
	}

	idx := Build(feed, testBaseURL)

	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Lookup("cup"))
}

func TestBuild_MissingTeaserGivesEmptySuffix(t *testing.T) {
	feed := []model.RawOffer{{Title: "Pizza deal", ThumbImage: []string{"p.jpg"}, Tags: []string{"pizza"}, Path: "/p"}}

	cards := Build(feed, testBaseURL).Lookup("pizza")

	require.Len(t, cards, 1)
	assert.Equal(t, "Pizza deal - ", cards[0].Alt)
}

func TestBuild_KeepsFeedOrderPerTag(t *testing.T) {
	feed := []model.RawOffer{
		{Title: "1", ThumbImage: []string{"1.jpg"}, Tags: []string{"cup"}, Path: "/1"},
		{Title: "2", ThumbImage: []string{"2.jpg"}, Tags: []string{"bottle"}, Path: "/2"},
		{Title: "3", ThumbImage: []string{"3.jpg"}, Tags: []string{"bottle", "cup"}, Path: "/3"},
		{Title: "4", ThumbImage: []string{"4.jpg"}, Tags: []string{"cup"}, Path: "/4"},
	}

	idx := Build(feed, testBaseURL)

	var cupHrefs []string
	for _, c := range idx.Lookup("cup") {
		cupHrefs = append(cupHrefs, c.Href)
	}
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/3", "https://example.com/4"}, cupHrefs)
	assert.Len(t, idx.Lookup("bottle"), 2)
}

func TestBuild_TagsAreCaseSensitive(t *testing.T) {
	feed := []model.RawOffer{{Title: "X", ThumbImage: []string{"x.jpg"}, Tags: []string{"Cup"}, Path: "/x"}}

	idx := Build(feed, testBaseURL)

	assert.Len(t, idx.Lookup("Cup"), 1)
	assert.Empty(t, idx.Lookup("cup"))
}

func TestBuild_EveryCardBelongsToATaggedOfferWithThumbnail(t *testing.T) {
	feed := []model.RawOffer{
		{Title: "a", ThumbImage: []string{"a.jpg"}, Tags: []string{"cup", "bowl"}, Path: "/a"},
		{Title: "b", ThumbImage: nil, Tags: []string{"cup"}, Path: "/b"},
		{Title: "c", ThumbImage: []string{"c.jpg"}, Tags: nil, Path: "/c"},
		{Title: "d", ThumbImage: []string{"d.jpg"}, Tags: []string{"bowl"}, Path: "/d"},
	}

	idx := Build(feed, testBaseURL)

	for _, tag := range idx.Tags() {
		for _, card := range idx.Lookup(tag) {
			found := false
			for _, offer := range feed {
				if testBaseURL+offer.Path != card.Href {
					continue
				}
				assert.NotEmpty(t, offer.ThumbImage)
				assert.Contains(t, offer.Tags, tag)
				found = true
			}
			assert.True(t, found, "card %+v has no source offer", card)
		}
	}
}

func TestLookup_AbsentAndUnknownTags(t *testing.T) {
	idx := Build([]model.RawOffer{{Title: "A", ThumbImage: []string{"a.jpg"}, Tags: []string{"cup"}, Path: "/a"}}, testBaseURL)

	for _, tag := range []string{"", "nonexistent-tag"} {
		got := idx.Lookup(tag)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestLookup_EmptyFeedAndNilIndex(t *testing.T) {
	idx := Build(nil, testBaseURL)
	assert.Empty(t, idx.Lookup("cup"))
	assert.Empty(t, idx.Tags())

	var nilIdx *Index
	assert.NotNil(t, nilIdx.Lookup("cup"))
	assert.Empty(t, nilIdx.Lookup("cup"))
	assert.Equal(t, 0, nilIdx.Len())
}
