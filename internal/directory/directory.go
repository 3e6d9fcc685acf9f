// Package directory is the thin client for the room directory service: one
// call to check that a room code exists and one to allocate a new code. The
// service itself is an external collaborator; a missing room is a semantic
// answer, distinct from a transport failure.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds the directory endpoint.
type Config struct {
	APIBaseURL     string `yaml:"api_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RoomResponse is the body of both directory calls.
type RoomResponse struct {
	Code string `json:"code"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.APIBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// RoomExists reports whether code names a known room. A 404 answer is
// (false, nil); anything other than 200/404 is an error, as is any transport
// failure.
func (c *Client) RoomExists(ctx context.Context, code string) (bool, error) {
	fullURL := fmt.Sprintf("%s/check_room/%s", c.baseURL, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("error performing HTTP GET to %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("received non-OK status code %d from directory. Response: %s",
			resp.StatusCode, string(body))
	}
}

// CreateRoom allocates and returns a new room code.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	fullURL := c.baseURL + "/create_room"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error performing HTTP POST to %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-OK status code %d from directory. Response: %s",
			resp.StatusCode, string(body))
	}

	var room RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return "", fmt.Errorf("error decoding response body: %w", err)
	}
	if room.Code == "" {
		return "", fmt.Errorf("directory returned an empty room code")
	}

	return room.Code, nil
}
