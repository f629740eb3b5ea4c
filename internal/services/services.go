package services

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"admin-dashboard/internal/config"
	"admin-dashboard/internal/models"
	"admin-dashboard/internal/telemetry"
)

const (
	tracerName      = "admin-dashboard/services"
	maxErrorBodyLen = 4 << 10
)

// ServiceClient bundles the clients for both upstream APIs.
type ServiceClient struct {
	Users    *Client[models.User]
	Products *Client[models.Product]
}

// NewServiceClient builds both clients from the resolved base URLs. The
// shared http.Client keeps the transport defaults: no timeout, no retries.
func NewServiceClient(cfg *config.Config) *ServiceClient {
	client := &http.Client{}
	return &ServiceClient{
		Users:    NewClient[models.User](models.UserSchema, cfg.UsersAPIURL, client),
		Products: NewClient[models.Product](models.ProductSchema, cfg.ProductsAPIURL, client),
	}
}

// Client talks to one resource collection.
type Client[T models.Record] struct {
	schema  models.Schema
	baseURL string
	client  *http.Client
	tracer  trace.Tracer
}

func NewClient[T models.Record](schema models.Schema, baseURL string, client *http.Client) *Client[T] {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client[T]{
		schema:  schema,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tracer:  otel.Tracer(tracerName),
	}
}

func (c *Client[T]) BaseURL() string {
	return c.baseURL
}

func (c *Client[T]) collectionURL() string {
	return c.baseURL + c.schema.Path
}

func (c *Client[T]) recordURL(id string) string {
	return c.collectionURL() + "/" + url.PathEscape(id)
}

// List fetches the whole collection in server order.
func (c *Client[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := c.do(ctx, "list", http.MethodGet, c.collectionURL(), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Client[T]) Create(ctx context.Context, fields models.Fields) error {
	body, err := c.schema.Payload(fields)
	if err != nil {
		return err
	}
	return c.do(ctx, "create", http.MethodPost, c.collectionURL(), body, nil)
}

func (c *Client[T]) Update(ctx context.Context, id string, fields models.Fields) error {
	body, err := c.schema.Payload(fields)
	if err != nil {
		return err
	}
	return c.do(ctx, "update", http.MethodPut, c.recordURL(id), body, nil)
}

func (c *Client[T]) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, c.recordURL(id), nil, nil)
}

func (c *Client[T]) do(ctx context.Context, op, method, target string, body any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, c.schema.Name+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
			attribute.String("dashboard.resource", c.schema.Name),
		),
	)
	start := time.Now()
	defer func() {
		telemetry.ObserveUpstream(c.schema.Name, op, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fail := func(status int, msg string, cause error) *FetchError {
		return &FetchError{Op: op, Method: method, URL: target, StatusCode: status, Message: msg, Err: cause}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(0, "", fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(0, "", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, readMessage(resp.Body), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(0, "", fmt.Errorf("decode %s response: %w", c.schema.Name, err))
	}
	return nil
}

// readMessage extracts a short error message from a failed response body.
// JSON bodies of the form {"error": "..."} or {"message": "..."} are unwrapped.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLen))
	if err != nil {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
