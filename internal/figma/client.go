// Package figma talks to the Figma REST API: it fetches design files and
// renders nodes to images.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/v0xg/uxspec/internal/design"
)

// DefaultBaseURL is the public Figma API endpoint
const DefaultBaseURL = "https://api.figma.com"

// Client is a minimal Figma REST client
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client authenticated with a personal access token
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("FIGMA_TOKEN environment variable or figma.token config required")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Option customises a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Figma API error: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// GetFile fetches and decodes a whole design file
func (c *Client) GetFile(ctx context.Context, fileKey string) (*design.Document, error) {
	body, err := c.get(ctx, "/v1/files/"+url.PathEscape(fileKey), nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return design.DecodeFile(body, fileKey)
}

type imagesResponse struct {
	Err    *string            `json:"err"`
	Images map[string]*string `json:"images"`
}

// GetImages asks the API to render nodes as PNG and returns a map from node
// id to a temporary download URL. Nodes the API could not render are absent.
func (c *Client) GetImages(ctx context.Context, fileKey string, nodeIDs []string, scale float64) (map[string]string, error) {
	if len(nodeIDs) == 0 {
		return map[string]string{}, nil
	}
	if scale <= 0 {
		scale = 2
	}
	q := url.Values{}
	q.Set("ids", strings.Join(nodeIDs, ","))
	q.Set("format", "png")
	q.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))

	body, err := c.get(ctx, "/v1/images/"+url.PathEscape(fileKey), q)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp imagesResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode images response: %w", err)
	}
	if resp.Err != nil && *resp.Err != "" {
		return nil, fmt.Errorf("image render failed: %s", *resp.Err)
	}
	if resp.Images == nil {
		return nil, fmt.Errorf("image render failed: no images in response")
	}

	urls := make(map[string]string, len(resp.Images))
	for id, u := range resp.Images {
		if u != nil && *u != "" {
			urls[id] = *u
		}
	}
	return urls, nil
}

// Download fetches a rendered image
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("image download failed: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (io.ReadCloser, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Figma-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Figma API request failed: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp.Body, nil
}
