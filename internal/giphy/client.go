// Package giphy is a passthrough client for the Giphy search API. It shapes
// upstream responses into the small GIF struct clients render; there is no
// coordination logic here.
package giphy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.giphy.com/v1/gifs"

// GIF is the shaped result sent to clients.
type GIF struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Preview string `json:"preview"`
	Width   string `json:"width"`
	Height  string `json:"height"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// Search returns GIFs matching query, G-rated.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) ([]GIF, error) {
	params := url.Values{
		"q":      {query},
		"limit":  {fmt.Sprint(limit)},
		"offset": {fmt.Sprint(offset)},
		"rating": {"g"},
	}
	return c.list(ctx, "/search", params)
}

// Trending returns currently trending GIFs.
func (c *Client) Trending(ctx context.Context, limit, offset int) ([]GIF, error) {
	params := url.Values{
		"limit":  {fmt.Sprint(limit)},
		"offset": {fmt.Sprint(offset)},
		"rating": {"g"},
	}
	return c.list(ctx, "/trending", params)
}

// GetByID fetches a single GIF.
func (c *Client) GetByID(ctx context.Context, id string) (*GIF, error) {
	var body struct {
		Data gifPayload `json:"data"`
	}
	if err := c.get(ctx, "/"+url.PathEscape(id), url.Values{}, &body); err != nil {
		return nil, err
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("gif %q not found", id)
	}
	g := body.Data.toGIF()
	return &g, nil
}

type gifPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Images struct {
		FixedHeight struct {
			URL    string `json:"url"`
			Width  string `json:"width"`
			Height string `json:"height"`
		} `json:"fixed_height"`
		FixedHeightSmall struct {
			URL string `json:"url"`
		} `json:"fixed_height_small"`
	} `json:"images"`
}

func (p gifPayload) toGIF() GIF {
	return GIF{
		ID:      p.ID,
		Title:   p.Title,
		URL:     p.Images.FixedHeight.URL,
		Preview: p.Images.FixedHeightSmall.URL,
		Width:   p.Images.FixedHeight.Width,
		Height:  p.Images.FixedHeight.Height,
	}
}

func (c *Client) list(ctx context.Context, path string, params url.Values) ([]GIF, error) {
	var body struct {
		Data []gifPayload `json:"data"`
	}
	if err := c.get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	gifs := make([]GIF, 0, len(body.Data))
	for _, p := range body.Data {
		gifs = append(gifs, p.toGIF())
	}
	return gifs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("giphy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("giphy responded %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode giphy response: %w", err)
	}
	return nil
}
