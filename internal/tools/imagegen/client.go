package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client calls a Seedream-compatible image generation API (the Ark
// images/generations endpoint shape).
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// GenerationRequest describes one generation or edit call. Image, when
// set, is the edit source: a data URI or an array of them.
type GenerationRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Image     any    `json:"image,omitempty"`
	Size      string `json:"size"`
	N         int    `json:"n,omitempty"`
	Format    string `json:"response_format"`
	Stream    bool   `json:"stream"`
	Watermark bool   `json:"watermark"`
}

// NewClient creates an image API client.
func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Remote generation of a large image can take a while.
			Timeout: 120 * time.Second,
		},
		logger: logger.With("component", "imagegen"),
	}
}

// Generate performs one image generation or edit call and returns the
// result image URLs.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) ([]string, error) {
	if c.apiKey == "" {
		return nil, errors.New("image api key not configured")
	}
	req.Format = "url"
	if req.N <= 0 {
		req.N = 1
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := c.baseURL + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("calling image api", "model", req.Model, "size", req.Size, "n", req.N)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read image api response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image api status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	urls := extractImageURLs(data)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no image url in response: %s", strings.TrimSpace(string(data)))
	}
	return urls, nil
}

// Download fetches one result image.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// extractImageURLs handles the response shapes the API is known to use:
// {"data":[{"url":...}]}, {"images":[{"url":...}]}, or a bare {"url":...}.
func extractImageURLs(data []byte) []string {
	var payload struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	var urls []string
	for _, item := range payload.Data {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	for _, item := range payload.Images {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	if len(urls) == 0 && payload.URL != "" {
		urls = append(urls, payload.URL)
	}
	return urls
}
