// Package stream talks to the hosted video streaming provider. The provider
// owns video bytes, transcoding, and playback; this service only creates
// placeholder containers, pushes metadata, polls processing status, and
// deletes assets.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusFinished is the provider status code that marks a video as fully
// processed and playable.
const StatusFinished = 4

// Video is the provider's view of a video container.
type Video struct {
	GUID           string `json:"guid"`
	Title          string `json:"title"`
	Status         int    `json:"status"`
	EncodeProgress int    `json:"encodeProgress"`
}

type Client struct {
	baseURL   string
	libraryID string
	accessKey string
	http      *http.Client
}

func New(baseURL, libraryID, accessKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		libraryID: libraryID,
		accessKey: accessKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateVideo creates a placeholder container and returns the provider's id.
// The client uploads the actual bytes directly to UploadURL afterwards.
func (c *Client) CreateVideo(ctx context.Context, title string) (string, error) {
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	var created Video
	if err := c.do(ctx, http.MethodPost, c.videosURL(), body, &created); err != nil {
		return "", err
	}
	if created.GUID == "" {
		return "", fmt.Errorf("provider returned no video id")
	}

	return created.GUID, nil
}

// UpdateVideo pushes title and description to the provider.
func (c *Client) UpdateVideo(ctx context.Context, videoID, title, description string) error {
	body, err := json.Marshal(map[string]string{
		"title":       title,
		"description": description,
	})
	if err != nil {
		return fmt.Errorf("marshal update request: %w", err)
	}

	return c.do(ctx, http.MethodPost, c.videoURL(videoID), body, nil)
}

// GetVideo polls the provider for processing state. Nothing is persisted
// locally; callers re-poll as needed.
func (c *Client) GetVideo(ctx context.Context, videoID string) (Video, error) {
	var v Video
	if err := c.do(ctx, http.MethodGet, c.videoURL(videoID), nil, &v); err != nil {
		return Video{}, err
	}
	return v, nil
}

func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	return c.do(ctx, http.MethodDelete, c.videoURL(videoID), nil, nil)
}

// UploadURL is where the client PUTs the recording bytes after the
// placeholder exists.
func (c *Client) UploadURL(videoID string) string {
	return c.videoURL(videoID)
}

// AccessKey is handed to the client alongside the upload URL; the provider
// accepts it as an upload credential.
func (c *Client) AccessKey() string {
	return c.accessKey
}

func (c *Client) videosURL() string {
	return fmt.Sprintf("%s/%s/videos", c.baseURL, c.libraryID)
}

func (c *Client) videoURL(videoID string) string {
	return fmt.Sprintf("%s/%s/videos/%s", c.baseURL, c.libraryID, videoID)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("AccessKey", c.accessKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stream request %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stream provider returned status %d for %s %s", resp.StatusCode, method, url)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode stream response: %w", err)
		}
	}

	return nil
}
