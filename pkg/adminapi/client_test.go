package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdraft/pkg/auth"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	client, err := NewClient("http://backend.test/api/", opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); !errors.Is(err, errBaseURLRequired) {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestListShopProductsRequest(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"status":true,"message":"ok","data":{"data":[{"id":"sp1","salePrice":10.5,"price":"7.25","profit":3.25,"product":{"name":"Mug","imageUrls":["a.png"],"stock":4}}],"meta":{"page":2,"take":10,"itemCount":11,"pageCount":2}},"errors":null,"timestamp":"2026-01-01T00:00:00Z"}`), nil
	}, WithServiceToken("svc-token"))

	page, err := client.ListShopProducts(context.Background(), "shop-1", pagination.Params{Page: 2, Take: 10})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "/api/admin/shops/shop-1/products", captured.URL.Path)
	assert.Equal(t, "2", captured.URL.Query().Get("page"))
	assert.Equal(t, "10", captured.URL.Query().Get("take"))
	assert.Equal(t, "shop-1", captured.URL.Query().Get("shopId"))
	assert.Equal(t, "Bearer svc-token", captured.Header.Get("Authorization"))

	require.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.Equal(t, "sp1", item.ID)
	assert.True(t, item.SalePrice.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, item.CostPrice.Equal(decimal.RequireFromString("7.25")))
	assert.Equal(t, "Mug", item.Product.Name)
	assert.Equal(t, 4, item.Product.Stock)
	assert.Equal(t, 2, page.Meta.Page)
	assert.Equal(t, 11, page.Meta.ItemCount)
}

func TestListShopProductsAcceptsBareArray(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":true,"message":"ok","data":[{"id":"a","salePrice":1},{"id":"b","salePrice":2}]}`), nil
	})

	page, err := client.ListShopProducts(context.Background(), "shop-1", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, pagination.DefaultTake, page.Meta.Take)
	assert.Equal(t, 2, page.Meta.ItemCount)
}

func TestForwardsCallerBearer(t *testing.T) {
	var header string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		header = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"status":true,"data":[]}`), nil
	}, WithServiceToken("svc-token"))

	ctx := auth.WithBearer(context.Background(), "admin-token")
	users, err := client.ListEligibleUsers(ctx, " jane ")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, "Bearer admin-token", header)
}

func TestListEligibleUsersSearch(t *testing.T) {
	var query string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		query = req.URL.RawQuery
		return jsonResponse(http.StatusOK, `{"status":true,"data":{"data":[{"id":"u1","email":"a@b.c","phone":"+15551234567","address":"1 Main St"}]}}`), nil
	})

	users, err := client.ListEligibleUsers(context.Background(), "a@b")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "search=a%40b", query)
	assert.Equal(t, "1 Main St", users[0].Address)
}

func TestCreateFakeOrderPostsBody(t *testing.T) {
	orderTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var payload map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/api/admin/fake-orders", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		return jsonResponse(http.StatusCreated, `{"status":true,"message":"created","data":{"id":42}}`), nil
	})

	created, err := client.CreateFakeOrder(context.Background(), CreateOrderRequest{
		Items:     []OrderItem{{ShopProductID: "sp1", Quantity: 2}},
		Email:     "a@b.c",
		Address:   "1 Main St",
		UserID:    "u1",
		OrderTime: &orderTime,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", created.ID)

	items, ok := payload["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "sp1", first["shopProductId"])
	assert.Equal(t, float64(2), first["quantity"])
	assert.Equal(t, "u1", payload["userId"])
	assert.Equal(t, "2026-03-01T10:00:00Z", payload["orderTime"])
	_, hasPhone := payload["phone"]
	assert.False(t, hasPhone, "empty phone should be omitted")
}

func TestCreateFakeOrderRejectionSurfacesMessage(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"status":false,"message":"Shop has no stock","data":null,"errors":{"items":"out of stock"}}`), nil
	})

	_, err := client.CreateFakeOrder(context.Background(), CreateOrderRequest{
		Items: []OrderItem{{ShopProductID: "sp1", Quantity: 1}},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstream, typed.Code())
	assert.Equal(t, "Shop has no stock", typed.Message())
	details := typed.Details().(map[string]any)
	assert.Equal(t, http.StatusBadRequest, details["http_status"])
	assert.NotNil(t, details["errors"])
}

func TestStatusFalseWithOKIsFailure(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":false,"message":"User is blocked"}`), nil
	})

	_, err := client.UpdateUserAddress(context.Background(), "u1", "2 Side St")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	assert.Equal(t, "User is blocked", pkgerrors.As(err).Message())
}

func TestUpdateUserAddress(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "/api/admin/users/u1", req.URL.Path)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return jsonResponse(http.StatusOK, `{"status":true,"data":{"id":"u1","email":"a@b.c","address":"2 Side St"}}`), nil
	})

	user, err := client.UpdateUserAddress(context.Background(), "u1", " 2 Side St ")
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", body["address"])
	assert.Equal(t, "a@b.c", user.Email)

	_, err = client.UpdateUserAddress(context.Background(), "u1", "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBreakerOpensOnServerFailuresOnly(t *testing.T) {
	calls := 0
	status := http.StatusBadRequest
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(status, `{"status":false,"message":"nope"}`), nil
	}, WithBreaker(BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute}))

	for i := 0; i < 3; i++ {
		_, err := client.ListEligibleUsers(context.Background(), "")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	}
	assert.Equal(t, 3, calls, "client rejections must not trip the breaker")

	status = http.StatusBadGateway
	for i := 0; i < 2; i++ {
		_, _ = client.ListEligibleUsers(context.Background(), "")
	}
	_, err := client.ListEligibleUsers(context.Background(), "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 5, calls, "open breaker should short-circuit")
}

func TestNetworkErrorIsDependency(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	_, err := client.ListEligibleUsers(context.Background(), "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDecodeCreatedOrderShapes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`{"id":"ord_1"}`, "ord_1", true},
		{`{"id":17}`, "17", true},
		{`"ord_2"`, "ord_2", true},
		{`99`, "99", true},
		{`null`, "", false},
		{`{}`, "", false},
	}
	for _, tt := range tests {
		got, err := decodeCreatedOrder(json.RawMessage(tt.raw))
		if tt.ok {
			require.NoError(t, err, tt.raw)
			assert.Equal(t, tt.want, got.ID, tt.raw)
		} else {
			assert.Error(t, err, tt.raw)
		}
	}
}
