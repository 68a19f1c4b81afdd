// Package postgrest implements store.Backend over a PostgREST endpoint such
// as the one Supabase exposes at /rest/v1.
package postgrest

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

	"github.com/hashicorp/go-cleanhttp"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

const maxErrorBody = 4 << 10

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client talks to one PostgREST endpoint. Calls are never retried.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func New(cfg Config) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = cfg.Timeout
	if hc.Timeout <= 0 {
		hc.Timeout = 10 * time.Second
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Configured reports ErrNotConfigured when the endpoint or key is missing.
func (c *Client) Configured() error {
	if c == nil || c.baseURL == "" || c.apiKey == "" {
		return store.ErrNotConfigured
	}
	return nil
}

func (c *Client) Select(ctx context.Context, q store.Query) ([]market.Record, error) {
	return c.do(ctx, http.MethodGet, "select", q, nil)
}

func (c *Client) Insert(ctx context.Context, q store.Query, row market.Record) ([]market.Record, error) {
	return c.do(ctx, http.MethodPost, "insert", store.Query{Table: q.Table, Embed: q.Embed}, row)
}

func (c *Client) Update(ctx context.Context, q store.Query, row market.Record) ([]market.Record, error) {
	return c.do(ctx, http.MethodPatch, "update", q, row)
}

func (c *Client) Delete(ctx context.Context, q store.Query) error {
	_, err := c.do(ctx, http.MethodDelete, "delete", q, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, op string, q store.Query, body market.Record) ([]market.Record, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}
	fail := func(err error) error { return &store.StoreError{Op: op, Table: q.Table, Err: err} }

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fail(fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(q), reader)
	if err != nil {
		return nil, fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &store.StoreError{
			Op:     op,
			Table:  q.Table,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(detail)),
		}
	}
	if method == http.MethodDelete || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(fmt.Errorf("read response: %w", err))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []market.Record
	if err := dec.Decode(&rows); err != nil {
		return nil, fail(fmt.Errorf("decode response: %w", err))
	}
	return rows, nil
}

// endpoint renders {base}/rest/v1/{table} with select and eq. filters.
func (c *Client) endpoint(q store.Query) string {
	params := url.Values{}
	if sel := selectClause(q); sel != "" {
		params.Set("select", sel)
	}
	for _, cond := range q.Filters.Conditions() {
		params.Add(cond.Key(), "eq."+cond.Value)
	}
	u := c.baseURL + "/rest/v1/" + url.PathEscape(q.Table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func selectClause(q store.Query) string {
	if q.Embed == nil {
		return ""
	}
	hint := q.Embed.ForeignKey
	if q.HasEmbeddedFilter() {
		hint += "!inner"
	}
	return fmt.Sprintf("*,%s:%s(*)", q.Embed.Alias, hint)
}
