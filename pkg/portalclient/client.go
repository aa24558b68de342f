// Package portalclient is a small Go client for the portal's public list
// endpoints, plus a Refetcher that keeps a list view in step with changing
// filters.
package portalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/event"
	"github.com/uniresearch/research-portal-backend/internal/grant"
	"github.com/uniresearch/research-portal-backend/internal/lab"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/partner"
	"github.com/uniresearch/research-portal-backend/internal/publication"
)

// Page is the list envelope every list endpoint returns.
type Page[T any] = listquery.Page[T]

// Query is one list request: paging plus named filters such as
// "query", "category" or "year".
type Query struct {
	Page     int
	PageSize int
	Filters  map[string]string
}

// Values encodes q in the form the list endpoints expect.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.TrimSpace(q.Filters[k]) != "" {
			v.Set(k, q.Filters[k])
		}
	}
	return v
}

// APIError is a non-2xx response. Fields carries the per-field messages of
// a 400 or 409.
type APIError struct {
	Status  int
	Message string
	Code    string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("portal: %d %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return fmt.Sprintf("portal: %d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends an access token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// List fetches one page of /api/v1/<resource>.
func List[T any](ctx context.Context, c *Client, resource string, q Query) (Page[T], error) {
	var page Page[T]
	err := c.get(ctx, "/api/v1/"+strings.Trim(resource, "/"), q.Values(), &page)
	if page.Data == nil {
		page.Data = []T{}
	}
	return page, err
}

func (c *Client) Events(ctx context.Context, q Query) (Page[event.Event], error) {
	return List[event.Event](ctx, c, "events", q)
}

func (c *Client) Grants(ctx context.Context, q Query) (Page[grant.Grant], error) {
	return List[grant.Grant](ctx, c, "grants", q)
}

func (c *Client) Publications(ctx context.Context, q Query) (Page[publication.Publication], error) {
	return List[publication.Publication](ctx, c, "publications", q)
}

func (c *Client) Labs(ctx context.Context, q Query) (Page[lab.Lab], error) {
	return List[lab.Lab](ctx, c, "labs", q)
}

func (c *Client) Equipment(ctx context.Context, q Query) (Page[equipment.Equipment], error) {
	return List[equipment.Equipment](ctx, c, "equipment", q)
}

func (c *Client) Partners(ctx context.Context, q Query) (Page[partner.Partner], error) {
	return List[partner.Partner](ctx, c, "partners", q)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error  string            `json:"error"`
			Code   string            `json:"code"`
			Errors map[string]string `json:"errors"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error, Code: e.Code, Fields: e.Errors}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
