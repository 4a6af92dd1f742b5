package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/service/offers"
)

const pageOne = `{"data":[
  {"nid":"101","title":" Coffee ","teaser":"<p>20% <b>off</b> &amp; more</p>","path":"/offers/coffee",
   "thumb_image":["/img/coffee.jpg"],"tags":["cup"],"metatag":{"description":"<p>Hot drinks</p>"}},
  {"nid":102,"title":"Pets","teaser":"","path":"/offers/pets","thumb_image":["/img/pet.jpg"],
   "tags":["dog","cat"],"metatag":[]}
]}`

const pageTwo = `{"data":[
  {"nid":"103","title":"Books","teaser":"Read more","path":"/offers/books","thumb_image":["/img/book.jpg"],"tags":["book"]}
]}`

func newAPI(t *testing.T, robots string, pages map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if robots == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, robots)
	})
	mux.HandleFunc("/api/star-offers-list", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, ok := pages[r.URL.Query().Get("page_number")]
		if !ok {
			body = `{"data":[]}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newScraper(srv *httptest.Server, maxPages int) *Scraper {
	return New(Options{
		SourceURL: srv.URL + "/api/star-offers-list?star_status=all",
		UserAgent: "OfferLens/1.0",
		MaxPages:  maxPages,
	}, logger.Discard())
}

func TestRun_PaginatesUntilEmptyPage(t *testing.T) {
	srv, requests := newAPI(t, "", map[string]string{"1": pageOne, "2": pageTwo})

	got, err := newScraper(srv, 10).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 3, requests.Load())

	assert.Equal(t, "101", got[0].NID.String())
	assert.Equal(t, "Coffee", got[0].Title)
	assert.Equal(t, "20% off & more", got[0].Teaser)
	assert.Equal(t, "Hot drinks", got[0].Description)
	assert.Equal(t, []string{"cup"}, got[0].Tags)

	assert.Equal(t, "102", got[1].NID.String())
	assert.Empty(t, got[1].Description)
}

func TestRun_SkipsMalformedOffers(t *testing.T) {
	page := `{"data":[
  {"nid":"n-7","title":"Odd id","path":"/odd","thumb_image":["/odd.jpg"],"tags":["cup"]},
  {"nid":201,"title":"Bad thumb","path":"/bad","thumb_image":"/bad.jpg","tags":["cup"]},
  {"nid":202,"title":"Fine","path":"/fine","thumb_image":["/fine.jpg"],"tags":["dog"]}
]}`
	srv, _ := newAPI(t, "", map[string]string{"1": page})

	got, err := newScraper(srv, 10).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n-7", got[0].NID.String())
	assert.Equal(t, "Fine", got[1].Title)
}

func TestRun_StopsAtMaxPages(t *testing.T) {
	srv, requests := newAPI(t, "", map[string]string{"1": pageOne, "2": pageTwo})

	got, err := newScraper(srv, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.EqualValues(t, 1, requests.Load())
}

func TestRun_StopsWhenPageRepeats(t *testing.T) {
	srv, requests := newAPI(t, "", map[string]string{"1": pageOne, "2": pageOne, "3": pageTwo})

	got, err := newScraper(srv, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.EqualValues(t, 2, requests.Load())
}

func TestRun_RespectsRobots(t *testing.T) {
	srv, requests := newAPI(t, "User-agent: *\nDisallow: /api/\n", map[string]string{"1": pageOne})

	_, err := newScraper(srv, 10).Run(context.Background())
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.EqualValues(t, 0, requests.Load())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{"missing data", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"pageProps":{}}`)
		}, ErrMissingData},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}, nil},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[`)
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(Options{SourceURL: srv.URL + "/list", MaxPages: 3}, logger.Discard()).Run(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"plain text":                     "plain text",
		"  spaced \n out  ":              "spaced out",
		"<p>Hello <b>world</b></p>":      "Hello world",
		"Tom &amp; Jerry":                "Tom & Jerry",
		"<div>a</div><div>b</div>":       "a b",
		"<style>p{}</style><p>shown</p>": "shown",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripHTML(in), in)
	}
}

func TestWriteFeed_LoadsBackThroughOffersDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "offers.json")
	feed := []model.RawOffer{
		{NID: "1", Title: "Pets & more", Path: "/pets", ThumbImage: []string{"/p.jpg"}, Tags: []string{"dog"}},
	}

	require.NoError(t, WriteFeed(path, feed))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Pets & more")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "data")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, skipped, err := offers.Decode(f)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, feed, decoded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
