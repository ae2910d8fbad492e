// Package client talks to the calendar REST service and normalizes every
// record it receives into model.Event.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

// DefaultBaseURL is the API root of a locally running server.
const DefaultBaseURL = "http://localhost:5000/api"

// maxResponseBytes bounds a single response body.
const maxResponseBytes = 10 << 20

// StoreError is returned for any non-2xx response or transport failure.
// Status is 0 when no response was received.
type StoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError is a StoreError for a 404 on a vanished id.
type NotFoundError struct {
	StoreError
}

// Unwrap exposes the embedded StoreError so errors.As(err, **StoreError)
// matches a NotFoundError too.
func (e *NotFoundError) Unwrap() error { return &e.StoreError }

// IsNotFound reports whether err came from a 404.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Client issues event CRUD calls. It never retries.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client rooted at baseURL (e.g. http://localhost:5000/api).
// A nil httpClient gets a 15s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ListEvents fetches every event.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.WireEvent
	if err := c.do(ctx, "list", http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	return normalizeAll("list", out)
}

// ListEventsInRange fetches events overlapping [start, end].
func (c *Client) ListEventsInRange(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	q := url.Values{}
	q.Set("start", model.FormatTimestamp(start))
	q.Set("end", model.FormatTimestamp(end))

	var out []model.WireEvent
	if err := c.do(ctx, "range", http.MethodGet, "/events/range?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return normalizeAll("range", out)
}

// GetEvent fetches a single event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (model.Event, error) {
	var out model.WireEvent
	if err := c.do(ctx, "get", http.MethodGet, "/events/"+url.PathEscape(id), nil, &out); err != nil {
		return model.Event{}, err
	}
	return normalizeOne("get", out)
}

// CreateEvent posts e without its id; the server assigns id and createdAt.
func (c *Client) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	w := model.ToWire(e)
	w.StoreID, w.ID, w.CreatedAt = "", "", ""

	var out model.WireEvent
	if err := c.do(ctx, "create", http.MethodPost, "/events", w, &out); err != nil {
		return model.Event{}, err
	}
	created, err := normalizeOne("create", out)
	if err != nil {
		return model.Event{}, err
	}
	appLog.Info("event created", "id", created.ID, "title", created.Title)
	return created, nil
}

// UpdateEvent sends the present fields of p; the server merges them.
func (c *Client) UpdateEvent(ctx context.Context, id string, p model.Patch) (model.Event, error) {
	var out model.WireEvent
	if err := c.do(ctx, "update", http.MethodPut, "/events/"+url.PathEscape(id), model.PatchToWire(p), &out); err != nil {
		return model.Event{}, err
	}
	return normalizeOne("update", out)
}

// DeleteEvent removes the event with the given id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

// ExportICS downloads every event as an iCalendar document.
func (c *Client) ExportICS(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, "export", http.MethodGet, "/events/export.ics", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &StoreError{Op: "export", Status: resp.StatusCode, Err: err}
	}
	return body, nil
}

// ImportICS uploads an iCalendar document and returns the created events.
func (c *Client) ImportICS(ctx context.Context, body []byte) ([]model.Event, error) {
	resp, err := c.send(ctx, "import", http.MethodPost, "/events/import", "text/calendar", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []model.WireEvent
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, &StoreError{Op: "import", Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return normalizeAll("import", out)
}

// do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &StoreError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, op, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &StoreError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the request and turns transport failures and non-2xx
// statuses into StoreErrors. On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, op, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appLog.Error("store request failed", err, "op", op, "method", method)
		return nil, &StoreError{Op: op, Err: err}
	}
	appLog.Debug("store request",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	se := StoreError{Op: op, Status: resp.StatusCode, Err: errors.New(serverMessage(resp))}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{StoreError: se}
	}
	return nil, &se
}

// serverMessage extracts {"error": "..."} from a failure body, falling back
// to the status text.
func serverMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) < 200 {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}

func normalizeOne(op string, w model.WireEvent) (model.Event, error) {
	e, err := model.Normalize(w)
	if err != nil {
		return model.Event{}, &StoreError{Op: op, Status: http.StatusOK, Err: err}
	}
	return e, nil
}

func normalizeAll(op string, ws []model.WireEvent) ([]model.Event, error) {
	out := make([]model.Event, 0, len(ws))
	for _, w := range ws {
		e, err := normalizeOne(op, w)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
