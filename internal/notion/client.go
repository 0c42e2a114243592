// Package notion is a minimal client for the Notion REST API covering the
// database, page and block endpoints the gateway needs.
package notion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

type API interface {
	RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error)
	QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error)
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	ListBlockChildren(ctx context.Context, blockID string, pageSize int) (*BlockList, error)
	DeleteBlock(ctx context.Context, blockID string) error
	AppendBlockChildren(ctx context.Context, blockID string, children []Block) (*BlockList, error)
}

// ClientFactory builds an API client authorized with a caller supplied token.
type ClientFactory interface {
	ForToken(token string) API
}

// APIError is a non-2xx response from Notion.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

type Factory struct {
	baseURL string
	version string
	base    *http.Client
}

type FactoryOption func(*Factory)

func WithBaseURL(u string) FactoryOption {
	return func(f *Factory) {
		if u != "" {
			f.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithVersion(v string) FactoryOption {
	return func(f *Factory) {
		if v != "" {
			f.version = v
		}
	}
}

// WithHTTPClient sets the transport the bearer-token client wraps.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.base = c
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		base:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Factory) ForToken(token string) API {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, f.base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &Client{
		baseURL: f.baseURL,
		version: f.version,
		http:    oauth2.NewClient(ctx, ts),
	}
}

type Client struct {
	baseURL string
	version string
	http    *http.Client
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		if sonic.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}
	if out != nil {
		if err := sonic.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("notion: decoding %s response: %w", path, err)
		}
	}
	return data, nil
}

func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if _, err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if _, err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	data, err := c.do(ctx, http.MethodPost, "/search", req, &resp)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Results []map[string]any `json:"results"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("notion: decoding /search response: %w", err)
	}
	resp.Raw = raw.Results
	return &resp, nil
}

func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var page Page
	if _, err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ListBlockChildren(ctx context.Context, blockID string, pageSize int) (*BlockList, error) {
	path := "/blocks/" + url.PathEscape(blockID) + "/children"
	if pageSize > 0 {
		path += "?page_size=" + strconv.Itoa(pageSize)
	}
	var list BlockList
	if _, err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/blocks/"+url.PathEscape(blockID), nil, nil)
	return err
}

func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) (*BlockList, error) {
	var list BlockList
	path := "/blocks/" + url.PathEscape(blockID) + "/children"
	if _, err := c.do(ctx, http.MethodPatch, path, appendRequest{Children: children}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
