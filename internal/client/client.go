package client

import (
	"biggest-circle-service/internal/api/dto"
	"biggest-circle-service/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ctxKey struct{}

// WithRequestID attaches an id sent as X-Request-ID on every call made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Client calls the circle service over HTTP. It is safe for concurrent use.
type Client struct {
	session     *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session = hc }
}

// WithRetry sets the number of attempts and the first backoff delay.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = max(1, attempts)
		c.backoff = backoff
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("circle client: base url is empty")
	}

	c := &Client{
		session:     &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GeneratePolygon asks the service for a star polygon. seed may be nil.
func (c *Client) GeneratePolygon(ctx context.Context, req dto.GeneratePolygonRequest) (domain.Polygon, error) {
	var poly domain.Polygon
	if err := c.post(ctx, "/generate/polygon", req, &poly); err != nil {
		return domain.Polygon{}, fmt.Errorf("generate polygon: %w", err)
	}
	return poly, nil
}

func (c *Client) Vertices(ctx context.Context, poly domain.Polygon) ([]domain.Point, error) {
	var out []domain.Point
	if err := c.post(ctx, "/voronoi/polygon/vertices", poly, &out); err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}
	return out, nil
}

func (c *Client) Circles(ctx context.Context, poly domain.Polygon) ([]domain.Circle, error) {
	var out []domain.Circle
	if err := c.post(ctx, "/voronoi/polygon/circles", poly, &out); err != nil {
		return nil, fmt.Errorf("circles: %w", err)
	}
	return out, nil
}

func (c *Client) Largest(ctx context.Context, poly domain.Polygon) (domain.Circle, error) {
	var out domain.Circle
	if err := c.post(ctx, "/voronoi/polygon/largest", poly, &out); err != nil {
		return domain.Circle{}, fmt.Errorf("largest: %w", err)
	}
	return out, nil
}

func (c *Client) CirclesBatch(ctx context.Context, polys []domain.Polygon) ([][]domain.Circle, error) {
	var out dto.BatchCirclesResponse
	if err := c.post(ctx, "/voronoi/polygons/circles", dto.BatchCirclesRequest{Polygons: polys}, &out); err != nil {
		return nil, fmt.Errorf("circles batch: %w", err)
	}
	return out.Results, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + path
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
