// Package captions fetches auto-generated transcripts from the streaming
// provider's caption CDN. Many videos never get one; absence is reported as
// ok=false, not as an error.
package captions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxTranscriptBytes = 2 * 1024 * 1024

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves the English auto-caption track for a provider video id.
// The file lives at a convention-based URL; a 404 means the transcript does
// not (yet) exist.
func (c *Client) Fetch(ctx context.Context, videoID string) (string, bool, error) {
	url := fmt.Sprintf("%s/%s/captions/en-auto.vtt", c.baseURL, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("create transcript request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch transcript: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("caption service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", false, fmt.Errorf("read transcript: %w", err)
	}

	return string(body), true, nil
}
