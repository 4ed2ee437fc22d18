package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/blogfront/internal/cache"
	"github.com/bilgisen/blogfront/internal/logger"
	"github.com/bilgisen/blogfront/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when a document lookup matches nothing
	ErrNotFound = errors.New("document not found")
	// ErrForeignCursor is returned for cursors that do not point at the
	// configured content store
	ErrForeignCursor = errors.New("cursor does not belong to the content store")
)

// Options configures a Client
type Options struct {
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
	RetryCount  int
	Cache       cache.Store
	CacheTTL    time.Duration
	RefTTL      time.Duration
}

// Client talks to the content store's document API
type Client struct {
	client   *resty.Client
	endpoint *url.URL
	token    string
	cache    cache.Store
	cacheTTL time.Duration
	refTTL   time.Duration
	log      *zerolog.Logger
}

// QueryOptions narrows a search
type QueryOptions struct {
	Fetch    []string
	PageSize int
	Page     int
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

func NewClient(opts Options) (*Client, error) {
	endpoint, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid content store endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid content store endpoint %q: scheme must be http or https", opts.Endpoint)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		client:   client,
		endpoint: endpoint,
		token:    opts.AccessToken,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		refTTL:   opts.RefTTL,
		log:      logger.WithComponent("cms"),
	}, nil
}

// Query searches documents matching all predicates and decodes the raw
// search response into out.
func (c *Client) Query(ctx context.Context, predicates []Predicate, opts QueryOptions, out any) error {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("ref", ref)
	params.Set("q", Join(predicates))
	if len(opts.Fetch) > 0 {
		params.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if opts.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if c.token != "" {
		params.Set("access_token", c.token)
	}

	body, err := c.get(ctx, c.endpoint.String()+"/documents/search?"+params.Encode(), c.cacheTTL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

// FetchPage follows a next-page cursor returned by an earlier search.
func (c *Client) FetchPage(ctx context.Context, cursor string, out any) error {
	target, err := c.resolveCursor(cursor)
	if err != nil {
		return err
	}

	body, err := c.get(ctx, target, c.cacheTTL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode page response: %w", err)
	}
	return nil
}

// GetByUID decodes the single document of docType with the given uid into
// out, or returns ErrNotFound.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, out any) error {
	var envelope searchEnvelope
	predicates := []Predicate{At(fmt.Sprintf("my.%s.uid", docType), uid)}
	if err := c.Query(ctx, predicates, QueryOptions{PageSize: 1}, &envelope); err != nil {
		return err
	}

	if len(envelope.Results) == 0 {
		return fmt.Errorf("%s %q: %w", docType, uid, ErrNotFound)
	}

	if err := json.Unmarshal(envelope.Results[0], out); err != nil {
		return fmt.Errorf("failed to decode document %q: %w", uid, err)
	}
	return nil
}

// resolveCursor checks that cursor points at the configured store and adds
// the access token when it is missing.
func (c *Client) resolveCursor(cursor string) (string, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	if !strings.EqualFold(u.Host, c.endpoint.Host) || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrForeignCursor
	}

	if c.token != "" {
		query := u.Query()
		if query.Get("access_token") == "" {
			query.Set("access_token", c.token)
			u.RawQuery = query.Encode()
		}
	}
	return u.String(), nil
}

func (c *Client) masterRef(ctx context.Context) (string, error) {
	target := c.endpoint.String()
	if c.token != "" {
		target += "?access_token=" + url.QueryEscape(c.token)
	}

	body, err := c.get(ctx, target, c.refTTL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve master ref: %w", err)
	}

	var info apiInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("failed to decode api info: %w", err)
	}

	for _, ref := range info.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", errors.New("content store returned no master ref")
}

// get performs a GET, serving from and filling the cache when one is set.
func (c *Client) get(ctx context.Context, target string, ttl time.Duration) ([]byte, error) {
	key := utils.CacheKey("cms", target)

	if c.cache != nil && ttl > 0 {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Msg("Cache read failed, querying content store")
		} else if ok {
			return cached, nil
		}
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(target)
	if err != nil {
		return nil, fmt.Errorf("content store request failed: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("Content store request")

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from content store", resp.StatusCode())
	}

	body := resp.Body()
	if c.cache != nil && ttl > 0 {
		if err := c.cache.Set(ctx, key, body, ttl); err != nil {
			c.log.Warn().Err(err).Msg("Cache write failed")
		}
	}
	return body, nil
}
