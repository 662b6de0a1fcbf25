package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/orderdraft/pkg/auth"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
	"github.com/angelmondragon/orderdraft/pkg/types"
)

const (
	defaultTimeout          = 15 * time.Second
	responseBodyReadLimit   = 1 << 20
	fallbackFailureMessage  = "backend request failed"
	productsPathFormat      = "admin/shops/%s/products"
	eligibleUsersPath       = "admin/fake-orders/valid-users"
	createOrderPath         = "admin/fake-orders"
	userPathFormat          = "admin/users/%s"
	defaultBreakerFailures  = 5
	defaultBreakerOpenDelay = 30 * time.Second
)

var (
	errBaseURLRequired = errors.New("backend base url is required")
	errServerFailure   = errors.New("backend server failure")
)

// BreakerSettings tunes the circuit breaker guarding backend calls.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold uint32
	OnStateChange    func(name string, from, to gobreaker.State)
}

// Client talks to the dashboard REST backend.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	serviceToken string
	breaker      *gobreaker.CircuitBreaker[*types.RawEnvelope]
	breakerCfg   BreakerSettings
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithServiceToken sets the token used when the caller's context carries no bearer.
func WithServiceToken(token string) Option {
	return func(c *Client) {
		c.serviceToken = strings.TrimSpace(token)
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		c.breakerCfg = settings
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.breaker = gobreaker.NewCircuitBreaker[*types.RawEnvelope](client.breakerSettings())
	return client, nil
}

func (c *Client) breakerSettings() gobreaker.Settings {
	cfg := c.breakerCfg
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultBreakerFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenDelay
	}
	return gobreaker.Settings{
		Name:        "backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Rejections the backend answered deliberately do not count against its health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return pkgerrors.IsCode(err, pkgerrors.CodeUpstream) && !errors.Is(err, errServerFailure)
		},
		OnStateChange: cfg.OnStateChange,
	}
}

// ListShopProducts returns one page of the shop's catalog.
func (c *Client) ListShopProducts(ctx context.Context, shopID string, params pagination.Params) (*ProductPage, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	params = pagination.Normalize(params)
	query := url.Values{}
	query.Set("shopId", shopID)
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("take", strconv.Itoa(params.Take))

	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf(productsPathFormat, url.PathEscape(shopID)), query, nil)
	if err != nil {
		return nil, err
	}

	page := &ProductPage{}
	if err := decodeList(env.Data, &page.Items, &page.Meta); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shop products")
	}
	if page.Meta.Page == 0 {
		page.Meta.Page = params.Page
		page.Meta.Take = params.Take
		page.Meta.ItemCount = len(page.Items)
	}
	return page, nil
}

// ListEligibleUsers returns users the backend accepts as fake-order recipients.
func (c *Client) ListEligibleUsers(ctx context.Context, search string) ([]User, error) {
	query := url.Values{}
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		query.Set("search", trimmed)
	}

	env, err := c.do(ctx, http.MethodGet, eligibleUsersPath, query, nil)
	if err != nil {
		return nil, err
	}

	var users []User
	if err := decodeList(env.Data, &users, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode eligible users")
	}
	return users, nil
}

// CreateFakeOrder posts the order creation request and returns the created order id.
func (c *Client) CreateFakeOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	env, err := c.do(ctx, http.MethodPost, createOrderPath, nil, req)
	if err != nil {
		return nil, err
	}

	created, err := decodeCreatedOrder(env.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode created order")
	}
	return created, nil
}

// UpdateUserAddress patches the address of a user.
func (c *Client) UpdateUserAddress(ctx context.Context, userID, address string) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	env, err := c.do(ctx, http.MethodPatch, fmt.Sprintf(userPathFormat, url.PathEscape(userID)), nil, map[string]string{"address": address})
	if err != nil {
		return nil, err
	}

	user := &User{ID: userID, Address: address}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode updated user")
		}
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*types.RawEnvelope, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}
	env, err := c.breaker.Execute(func() (*types.RawEnvelope, error) {
		return c.roundTrip(ctx, method, path, query, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend temporarily unavailable")
	}
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) (*types.RawEnvelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal backend request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", errServerFailure, err), "execute backend request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", errServerFailure, err), "read backend response")
	}

	var env types.RawEnvelope
	decodeErr := json.Unmarshal(raw, &env)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if ok && decodeErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode backend envelope")
	}
	if ok && env.Status {
		return &env, nil
	}

	message := strings.TrimSpace(env.Message)
	if message == "" {
		message = fallbackFailureMessage
	}
	cause := fmt.Errorf("status %d", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		cause = fmt.Errorf("%w: status %d", errServerFailure, resp.StatusCode)
	}
	details := map[string]any{"http_status": resp.StatusCode}
	if len(env.Errors) > 0 && string(env.Errors) != "null" {
		details["errors"] = env.Errors
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, message).WithDetails(details)
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token := strings.TrimSpace(auth.BearerFromContext(ctx)); token != "" {
		return token
	}
	return c.serviceToken
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// decodeList accepts either a bare array or a {data, meta} page object.
func decodeList[T any](raw json.RawMessage, items *[]T, meta *pagination.Meta) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*items = []T{}
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, items)
	}
	var page struct {
		Data  []T             `json:"data"`
		Items []T             `json:"items"`
		Meta  pagination.Meta `json:"meta"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	switch {
	case page.Data != nil:
		*items = page.Data
	case page.Items != nil:
		*items = page.Items
	default:
		*items = []T{}
	}
	if meta != nil {
		*meta = page.Meta
	}
	return nil
}

// decodeCreatedOrder accepts {"id": ...}, a bare id string, or a bare number.
func decodeCreatedOrder(raw json.RawMessage) (*CreatedOrder, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("missing order id")
	}
	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return nil, err
		}
		return &CreatedOrder{ID: id}, nil
	case '{':
		var obj map[string]any
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, err
		}
		id, ok := obj["id"]
		if !ok || id == nil || fmt.Sprint(id) == "" {
			return nil, errors.New("missing order id")
		}
		return &CreatedOrder{ID: fmt.Sprint(id)}, nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, err
		}
		return &CreatedOrder{ID: n.String()}, nil
	}
}
