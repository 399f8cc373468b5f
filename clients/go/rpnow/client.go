// Package rpnow provides a client for the rpnow room API.
package rpnow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is an rpnow API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client for the given server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a structured error returned by the server.
type APIError struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Details
	}
	return e.Code
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// Challenge is a secret/hash pair. Keep the secret; send the hash.
type Challenge struct {
	Secret string `json:"secret"`
	Hash   string `json:"hash"`
}

// Room is the full room view.
type Room struct {
	Title     string    `json:"title"`
	Desc      string    `json:"desc,omitempty"`
	Msgs      []Message `json:"msgs"`
	Charas    []Chara   `json:"charas"`
	MsgCount  int64     `json:"msgCount"`
	PageCount int64     `json:"pageCount"`
}

// Message mirrors the server's message shape.
type Message struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Content   string  `json:"content,omitempty"`
	URL       string  `json:"url,omitempty"`
	CharaID   int64   `json:"charaId,omitempty"`
	Challenge string  `json:"challenge,omitempty"`
	Timestamp float64 `json:"timestamp"`
	Edited    float64 `json:"edited,omitempty"`
}

// Chara mirrors the server's chara shape.
type Chara struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AdminRoom is one row of the admin room listing.
type AdminRoom struct {
	RPCode    string  `json:"rpCode"`
	Title     string  `json:"title"`
	CreatedAt float64 `json:"createdAt"`
	Online    int     `json:"online"`
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health() error {
	res, err := c.HTTPClient.Get(c.BaseURL + "/health")
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s", res.Status)
	}
	return nil
}

// CreateRoom creates a room and returns its code.
func (c *Client) CreateRoom(title, desc string) (string, error) {
	body := map[string]string{"title": title}
	if desc != "" {
		body["desc"] = desc
	}
	var out struct {
		RPCode string `json:"rpCode"`
	}
	if err := c.do(http.MethodPost, "/api/rp", body, &out); err != nil {
		return "", err
	}
	return out.RPCode, nil
}

// GetChallenge fetches a fresh secret/hash pair.
func (c *Client) GetChallenge() (*Challenge, error) {
	var out Challenge
	if err := c.do(http.MethodGet, "/api/challenge", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoom fetches the whole room.
func (c *Client) GetRoom(rpCode string) (*Room, error) {
	var out Room
	if err := c.do(http.MethodGet, "/api/rp/"+url.PathEscape(rpCode), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostMessage sends a message. The challenge hash comes from a prior
// GetChallenge call.
func (c *Client) PostMessage(rpCode string, msg map[string]any) (*Message, error) {
	var out Message
	if err := c.do(http.MethodPost, "/api/rp/"+url.PathEscape(rpCode)+"/message", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditMessage replaces a message's content, proving authorship with the
// secret from the original challenge.
func (c *Client) EditMessage(rpCode string, id int64, content, secret string) (*Message, error) {
	body := map[string]any{"content": content, "secret": secret}
	var out Message
	path := fmt.Sprintf("/api/rp/%s/message/%d", url.PathEscape(rpCode), id)
	if err := c.do(http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRooms lists all rooms. Admin endpoint; only answers on loopback.
func (c *Client) ListRooms() ([]AdminRoom, error) {
	var out []AdminRoom
	if err := c.do(http.MethodGet, "/api/admin/rps", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DestroyRoom permanently deletes a room. Admin endpoint.
func (c *Client) DestroyRoom(rpCode string) error {
	return c.do(http.MethodDelete, "/api/admin/rp/"+url.PathEscape(rpCode), nil, nil)
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var envelope errorEnvelope
		if err := json.NewDecoder(res.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
