package deviantart

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var deviationIDRegex = regexp.MustCompile(`-(\d+)$`)

// Author identifies the artist behind a deviation.
type Author struct {
	Name   string
	URL    string
	Avatar string
}

// Deviation is one artwork page scraped from DeviantArt.
type Deviation struct {
	ID          string
	URL         string
	Title       string
	ImageURL    string
	Description string
	Published   time.Time
	Author      Author
}

// Client fetches deviation pages. Parsing sticks to og: meta tags with a
// handful of page-specific fallbacks.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  defaultUserAgent,
	}
}

// GetLatestDeviation returns the newest deviation reachable from the given
// URL. A direct artwork URL is scraped as-is; a gallery or group page is
// followed to its first artwork link. Returns (nil, nil) if the page lists
// no deviations.
func (c *Client) GetLatestDeviation(pageURL string) (*Deviation, error) {
	if strings.Contains(pageURL, "/art/") {
		return c.scrapeDeviationPage(pageURL)
	}

	doc, err := c.fetchDocument(pageURL)
	if err != nil {
		return nil, err
	}

	link, ok := doc.Find(`a[href*="/art/"]`).First().Attr("href")
	if !ok {
		return nil, nil
	}

	return c.scrapeDeviationPage(link)
}

// GetRecentDeviations lists up to limit deviations from a gallery or group
// page, newest first. With fullDetails each artwork page is fetched for
// complete metadata; otherwise only the ID and URL are filled in.
func (c *Client) GetRecentDeviations(pageURL string, limit int, fullDetails bool) ([]*Deviation, error) {
	doc, err := c.fetchDocument(pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var deviations []*Deviation

	doc.Find(`a[href*="/art/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || seen[href] {
			return true
		}
		seen[href] = true

		deviations = append(deviations, &Deviation{
			ID:  extractDeviationID(href),
			URL: href,
		})
		return len(deviations) < limit
	})

	if !fullDetails {
		return deviations, nil
	}

	for i, d := range deviations {
		full, err := c.scrapeDeviationPage(d.URL)
		if err != nil {
			return nil, fmt.Errorf("fetching details for %s: %w", d.URL, err)
		}
		deviations[i] = full
	}
	return deviations, nil
}

func (c *Client) fetchDocument(url string) (*goquery.Document, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Client) scrapeDeviationPage(url string) (*Deviation, error) {
	doc, err := c.fetchDocument(url)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}

	imageURL, ok := doc.Find(`img[data-hook="deviation_img"]`).Attr("src")
	if !ok {
		imageURL, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	}

	authorLink := doc.Find("a[data-username]").First()
	authorName := strings.TrimSpace(authorLink.Find("span").First().Text())
	if authorName == "" {
		authorName, _ = authorLink.Attr("data-username")
	}
	authorURL, _ := authorLink.Attr("href")
	if authorURL == "" && authorName != "" {
		authorURL = "https://www.deviantart.com/" + strings.ToLower(authorName)
	}
	authorAvatar, _ := authorLink.Find("img").Attr("src")

	description := strings.TrimSpace(doc.Find(`div[data-hook="description"]`).Text())

	published := time.Now()
	if datetime, ok := doc.Find("time").Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
			published = parsed
		}
	}

	return &Deviation{
		ID:          extractDeviationID(url),
		URL:         url,
		Title:       title,
		ImageURL:    imageURL,
		Description: description,
		Published:   published,
		Author: Author{
			Name:   authorName,
			URL:    authorURL,
			Avatar: authorAvatar,
		},
	}, nil
}

// extractDeviationID pulls the numeric ID from an artwork URL. The full URL
// serves as a fallback key when the slug has no trailing ID.
func extractDeviationID(url string) string {
	matches := deviationIDRegex.FindStringSubmatch(strings.TrimRight(url, "/"))
	if len(matches) > 1 {
		return matches[1]
	}
	return url
}
