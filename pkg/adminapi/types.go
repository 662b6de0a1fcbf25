package adminapi

import (
	"strings"
	"time"

	"github.com/angelmondragon/orderdraft/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ShopProduct is a sellable catalog line item of a shop. Owned by the backend; never mutated here.
type ShopProduct struct {
	ID        string          `json:"id"`
	SalePrice decimal.Decimal `json:"salePrice"`
	CostPrice decimal.Decimal `json:"price"`
	Profit    decimal.Decimal `json:"profit"`
	Product   Product         `json:"product"`
}

// Product is the display-only descriptor nested in a ShopProduct.
type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"imageUrls"`
	Stock       int      `json:"stock"`
}

const (
	// NotAvailable is shown in place of missing text fields.
	NotAvailable = "N/A"
	// PlaceholderImageURL is shown when a product has no images.
	PlaceholderImageURL = "https://placehold.co/120x120?text=No+Image"
)

// DisplayName returns the product name or N/A.
func (p ShopProduct) DisplayName() string {
	return orNotAvailable(p.Product.Name)
}

// DisplayDescription returns the product description or N/A.
func (p ShopProduct) DisplayDescription() string {
	return orNotAvailable(p.Product.Description)
}

// DisplayImage returns the first usable image url or the placeholder.
func (p ShopProduct) DisplayImage() string {
	for _, u := range p.Product.ImageURLs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			return trimmed
		}
	}
	return PlaceholderImageURL
}

// ProductPage is one page of a shop's catalog.
type ProductPage struct {
	Items []ShopProduct   `json:"data"`
	Meta  pagination.Meta `json:"meta"`
}

// User is a customer record as returned by the backend.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName joins first and last name, falling back to the email and then N/A.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	return orNotAvailable(u.Email)
}

// HasAddress reports whether the user can receive an order.
func (u User) HasAddress() bool {
	return strings.TrimSpace(u.Address) != ""
}

func orNotAvailable(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return NotAvailable
}

// OrderItem references a shop product and the quantity ordered.
type OrderItem struct {
	ShopProductID string `json:"shopProductId"`
	Quantity      int    `json:"quantity"`
}

// CreateOrderRequest is the body of the fake-order creation endpoint.
type CreateOrderRequest struct {
	Items     []OrderItem `json:"items"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Address   string      `json:"address"`
	UserID    string      `json:"userId"`
	OrderTime *time.Time  `json:"orderTime,omitempty"`
}

// CreatedOrder is the backend's answer to a successful order creation.
type CreatedOrder struct {
	ID string `json:"id"`
}
