// Package gateway is the HTTP client for the notes API. Every transport error
// and non-2xx response is reported as an apperr transient error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/apperr"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"golang.org/x/time/rate"
)

const (
	apiNotes      = "/notes"
	apiCategories = "/categories"
	apiHealth     = "/health"

	// IdempotencyHeader carries the client reference of a note being created.
	IdempotencyHeader = "Idempotency-Key"

	maxErrorBody = 512
)

// ListParams are the query parameters of GET /notes.
type ListParams struct {
	Sort   models.SortOrder
	Search string
}

// Client talks to the notes API rooted at baseURL (e.g. http://localhost:8080/api).
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimit spaces outgoing requests to at most rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client. A nil httpClient means http.DefaultClient.
func New(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthURL is the endpoint probed for connectivity.
func (c *Client) HealthURL() string {
	return c.baseURL + apiHealth
}

// List fetches every note from the server.
func (c *Client) List(ctx context.Context, p ListParams) ([]models.Note, error) {
	q := url.Values{}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	path := apiNotes
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var notes []models.Note
	if err := c.do(ctx, "list notes", http.MethodGet, path, nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Create posts a new note. idempotencyKey may be empty.
func (c *Client) Create(ctx context.Context, req models.CreateNoteRequest, idempotencyKey string) (models.Note, error) {
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{IdempotencyHeader: []string{idempotencyKey}}
	}
	var note models.Note
	if err := c.do(ctx, "create note", http.MethodPost, apiNotes, hdr, req, &note); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// Update applies a partial update to the note with the given server id.
func (c *Client) Update(ctx context.Context, id int64, req models.UpdateNoteRequest) (models.Note, error) {
	var note models.Note
	if err := c.do(ctx, "update note", http.MethodPut, noteURL(id), nil, req, &note); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// Delete removes the note with the given server id. A 404 is treated as success.
func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.do(ctx, "delete note", http.MethodDelete, noteURL(id), nil, nil, nil)
	if apperr.StatusOf(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// DeleteMany removes several notes in one request.
func (c *Client) DeleteMany(ctx context.Context, ids []int64) error {
	return c.do(ctx, "bulk delete notes", http.MethodDelete, apiNotes, nil, models.BulkDeleteRequest{IDs: ids}, nil)
}

// Categories fetches the category summary.
func (c *Client) Categories(ctx context.Context) (models.CategorySummary, error) {
	var sum models.CategorySummary
	if err := c.do(ctx, "categories", http.MethodGet, apiCategories, nil, nil, &sum); err != nil {
		return models.CategorySummary{}, err
	}
	return sum, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, hdr http.Header, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Transient(op, 0, err)
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(op+": encode body", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Internal(op+": build request", err)
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transient(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.Transient(op, resp.StatusCode,
			fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transient(op+": invalid response", resp.StatusCode, err)
	}
	return nil
}

func noteURL(id int64) string {
	return apiNotes + "/" + strconv.FormatInt(id, 10)
}
