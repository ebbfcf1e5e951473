package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the HTTP implementation of Store, talking to a kaitodo-server
// record service. Timeouts are the transport's responsibility, so the
// default client carries one.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the record service at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Create implements Store.Create.
func (c *Client) Create(ctx context.Context, recordType string, fields Fields) (string, error) {
	var rec Record
	err := c.do(ctx, http.MethodPost, "/api/records/"+url.PathEscape(recordType), fields, &rec)
	if err != nil {
		return "", fmt.Errorf("failed to create %s record: %w", recordType, err)
	}
	return rec.ID, nil
}

// Get implements Store.Get.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, "/api/records/id/"+url.PathEscape(id), nil, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update implements Store.Update.
func (c *Client) Update(ctx context.Context, id string, fields Fields) error {
	return c.do(ctx, http.MethodPatch, "/api/records/id/"+url.PathEscape(id), fields, nil)
}

// Delete implements Store.Delete.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/records/id/"+url.PathEscape(id), nil, nil)
}

// Query implements Store.Query. Only string-valued predicates travel over
// the wire; that covers every query the sharing engine issues (invite code,
// list reference).
func (c *Client) Query(ctx context.Context, recordType, field string, value any) ([]Record, error) {
	params := url.Values{}
	params.Set("type", recordType)
	params.Set("field", field)
	params.Set("value", fmt.Sprint(value))

	var records []Record
	if err := c.do(ctx, http.MethodGet, "/api/query?"+params.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", recordType, err)
	}
	return records, nil
}

// EventsURL returns the websocket endpoint broadcasting record changes.
func (c *Client) EventsURL() string {
	return c.baseURL + "/api/events"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("record service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("record service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
