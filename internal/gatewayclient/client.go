// Package gatewayclient talks to the widget gateway over HTTP on behalf of the
// widget loop, the routine player and the setup wizard.
package gatewayclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/limbo/routinewidget/pkg/entity"
)

const (
	clientHeader   = "X-Widget-Client"
	viewportHeader = "X-Widget-Viewport"
	referrerHeader = "X-Widget-Referrer"
)

// Error is a non-2xx gateway answer. Message comes from the `error` field when present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL  string
	http     *http.Client
	clientID string
	viewport string
	referrer string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClientID tags every request so the gateway can group logs of one instance.
func WithClientID(id string) Option {
	return func(cl *Client) { cl.clientID = id }
}

// WithEnvironment sets the viewport and referrer reported with remote logs.
func WithEnvironment(viewport, referrer string) Option {
	return func(cl *Client) {
		cl.viewport = viewport
		cl.referrer = referrer
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) post(ctx context.Context, path string, body, out any, headers map[string]string) error {
	payload, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		req.Header.Set(clientHeader, c.clientID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if sonic.Unmarshal(raw, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) WidgetData(ctx context.Context, token, databaseID string) (*entity.WidgetData, error) {
	body := map[string]string{"token": token, "databaseId": databaseID}
	var data entity.WidgetData
	if err := c.post(ctx, "/gateway/widget-data", body, &data, nil); err != nil {
		return nil, err
	}
	return &data, nil
}

// RandomPraise asks for a praise other than exclude. The gateway may still
// answer with exclude when it is the only candidate.
func (c *Client) RandomPraise(ctx context.Context, token, databaseID, exclude string) (string, error) {
	body := map[string]string{"token": token, "databaseId": databaseID}
	if exclude != "" {
		body["excludePraise"] = exclude
	}
	var out struct {
		Praise string `json:"praise"`
	}
	if err := c.post(ctx, "/gateway/random-praise", body, &out, nil); err != nil {
		return "", err
	}
	return out.Praise, nil
}

func (c *Client) ListDatabases(ctx context.Context, token string) ([]entity.DatabaseSummary, error) {
	var out struct {
		Items []entity.DatabaseSummary `json:"items"`
	}
	if err := c.post(ctx, "/gateway/databases", map[string]string{"token": token}, &out, nil); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type saveRoutineBody struct {
	Token          string `json:"token"`
	DatabaseID     string `json:"databaseId"`
	CompletedCount int    `json:"completedCount"`
	TotalCount     int    `json:"totalCount"`
	Mood           string `json:"mood"`
	Date           string `json:"date,omitempty"`
}

func (c *Client) SaveRoutine(ctx context.Context, token string, s entity.RoutineSummary) error {
	body := saveRoutineBody{
		Token:          token,
		DatabaseID:     s.DatabaseID,
		CompletedCount: s.CompletedCount,
		TotalCount:     s.TotalCount,
		Mood:           s.Mood,
	}
	if !s.Date.IsZero() {
		body.Date = s.Date.Format(time.DateOnly)
	}
	return c.post(ctx, "/gateway/save-routine", body, nil, nil)
}

// SendLog forwards one buffered log entry to the debug sink.
func (c *Client) SendLog(ctx context.Context, userAgent string, entry entity.LogEntry) error {
	body := map[string]any{"log": entry, "userAgent": userAgent}
	headers := map[string]string{}
	if c.viewport != "" {
		headers[viewportHeader] = c.viewport
	}
	if c.referrer != "" {
		headers[referrerHeader] = c.referrer
	}
	return c.post(ctx, "/debug/log", body, nil, headers)
}
