package deviantart

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const galleryHTML = `<html><body>
<a href="%[1]s/artist/art/First-Piece-1001">First</a>
<a href="%[1]s/artist/art/First-Piece-1001">First again</a>
<a href="%[1]s/artist/art/Second-Piece-1002">Second</a>
<a href="%[1]s/artist/art/Third-Piece-1003">Third</a>
<a href="%[1]s/artist/journal/not-art">Journal</a>
</body></html>`

const deviationHTML = `<html><head>
<meta property="og:image" content="https://images.example/piece.png">
</head><body>
<h1>First Piece</h1>
<a data-username="SomeArtist" href="https://www.deviantart.com/someartist">
  <span>SomeArtist</span>
  <img src="https://images.example/avatar.png">
</a>
<div data-hook="description">A lovely piece.</div>
<time datetime="2025-05-01T10:30:00+00:00">May 1</time>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/gallery", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, galleryHTML, server.URL)
	})
	mux.HandleFunc("/artist/art/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, deviationHTML)
	})
	return server
}

func TestGetRecentDeviations(t *testing.T) {
	server := newTestServer(t)
	client := NewClient()

	deviations, err := client.GetRecentDeviations(server.URL+"/gallery", 5, false)
	require.NoError(t, err)
	require.Len(t, deviations, 3, "duplicate and non-art links are skipped")
	assert.Equal(t, "1001", deviations[0].ID)
	assert.Equal(t, "1002", deviations[1].ID)
	assert.Equal(t, "1003", deviations[2].ID)
}

func TestGetRecentDeviationsHonorsLimit(t *testing.T) {
	server := newTestServer(t)
	client := NewClient()

	deviations, err := client.GetRecentDeviations(server.URL+"/gallery", 2, false)
	require.NoError(t, err)
	assert.Len(t, deviations, 2)
}

func TestGetLatestDeviationFromArtURL(t *testing.T) {
	server := newTestServer(t)
	client := NewClient()

	d, err := client.GetLatestDeviation(server.URL + "/artist/art/First-Piece-1001")
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, "1001", d.ID)
	assert.Equal(t, "First Piece", d.Title)
	assert.Equal(t, "https://images.example/piece.png", d.ImageURL)
	assert.Equal(t, "A lovely piece.", d.Description)
	assert.Equal(t, "SomeArtist", d.Author.Name)
	assert.Equal(t, "https://www.deviantart.com/someartist", d.Author.URL)
	assert.Equal(t, "https://images.example/avatar.png", d.Author.Avatar)
	assert.Equal(t, 2025, d.Published.Year())
}

func TestGetLatestDeviationEmptyGallery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>No art here.</body></html>`)
	}))
	defer server.Close()
	client := NewClient()

	d, err := client.GetLatestDeviation(server.URL)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestFetchDocumentNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	client := NewClient()

	_, err := client.GetLatestDeviation(server.URL + "/artist/art/Some-Piece-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestExtractDeviationID(t *testing.T) {
	assert.Equal(t, "12345", extractDeviationID("https://www.deviantart.com/a/art/Title-12345"))
	assert.Equal(t, "12345", extractDeviationID("https://www.deviantart.com/a/art/Title-12345/"))
	url := "https://www.deviantart.com/a/art/no-trailing-id"
	assert.Equal(t, url, extractDeviationID(url))
}
