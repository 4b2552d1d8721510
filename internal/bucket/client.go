// Package bucket is a minimal object-storage client for the Supabase
// Storage REST API: just enough to list a user's export files and
// download their contents.
package bucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Object is one stored file as returned by a list call.
type Object struct {
	Name      string     `json:"name"`
	ID        *string    `json:"id"`
	UpdatedAt *time.Time `json:"updated_at"`
	CreatedAt *time.Time `json:"created_at"`
}

// APIError is a structured error response from the storage API.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("storage api %d: %s (%s)", e.StatusCode, msg, e.Details)
	}
	return fmt.Sprintf("storage api %d: %s", e.StatusCode, msg)
}

// Client talks to one storage bucket.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// New creates a Client for the given project URL, service key and bucket.
func New(baseURL, serviceKey, bucket string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

const listPageSize = 100

type listRequest struct {
	Prefix string     `json:"prefix"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	SortBy listSortBy `json:"sortBy"`
}

type listSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

// List returns every object under prefix, paging until the API returns a
// short page.
func (c *Client) List(ctx context.Context, prefix string) ([]Object, error) {
	var all []Object
	for offset := 0; ; offset += listPageSize {
		page, err := c.listPage(ctx, prefix, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, prefix string, offset int) ([]Object, error) {
	body, err := json.Marshal(listRequest{
		Prefix: prefix,
		Limit:  listPageSize,
		Offset: offset,
		SortBy: listSortBy{Column: "name", Order: "asc"},
	})
	if err != nil {
		return nil, fmt.Errorf("bucket: encode list request: %w", err)
	}

	u := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bucket: create list request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bucket: list %q: %w", prefix, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("bucket: decode list response: %w", err)
	}
	return objects, nil
}

// Download fetches the contents of one object.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("bucket: create download request: %w", err)
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bucket: download %q: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bucket: read %q: %w", path, err)
	}
	return body, nil
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
}

// apiError reads the error payload from a non-200 response. The body is
// best effort: some failures return plain text or nothing at all.
func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		if json.Unmarshal(body, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}
