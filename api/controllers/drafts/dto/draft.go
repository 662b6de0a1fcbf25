package draftsdto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdraft/internal/drafts"
)

// Draft is the order draft as exposed to the dashboard.
type Draft struct {
	ID            uuid.UUID        `json:"id"`
	ShopID        string           `json:"shopId"`
	State         drafts.State     `json:"state"`
	TotalSelected int              `json:"totalSelected"`
	Lines         []Line           `json:"lines"`
	Recipient     *Recipient       `json:"recipient,omitempty"`
	Totals        Totals           `json:"totals"`
	Warnings      []drafts.Warning `json:"warnings,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Line is one selected catalog item with its effective quantity.
type Line struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Stock       int    `json:"stock"`
	SalePrice   string `json:"salePrice"`
	CostPrice   string `json:"price"`
	Profit      string `json:"profit"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"lineTotal"`
}

// Recipient is the selected customer plus its avatar colors.
type Recipient struct {
	UserID  string           `json:"userId"`
	Email   string           `json:"email"`
	Phone   string           `json:"phone"`
	Address string           `json:"address"`
	Color   drafts.ColorPair `json:"color"`
}

// Totals are money amounts formatted to cents.
type Totals struct {
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Shipping   string `json:"shipping"`
	Discount   string `json:"discount"`
	GrandTotal string `json:"grandTotal"`
}

// Submitted is returned once the backend accepted the order.
type Submitted struct {
	OrderID string `json:"orderId"`
	Totals  Totals `json:"totals"`
	Draft   Draft  `json:"draft"`
}

// ProductInput mirrors the catalog product descriptor.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"imageUrls"`
	Stock       int      `json:"stock"`
}

// AddLineRequest carries the catalog line item picked from the product listing.
type AddLineRequest struct {
	ID        string          `json:"id" validate:"required,max=64"`
	SalePrice decimal.Decimal `json:"salePrice"`
	CostPrice decimal.Decimal `json:"price"`
	Profit    decimal.Decimal `json:"profit"`
	Product   ProductInput    `json:"product"`
}

// SetQuantityRequest nudges a line quantity up or down by one.
type SetQuantityRequest struct {
	Delta int `json:"delta" validate:"oneof=-1 1"`
}

// SelectRecipientRequest is a user picked from the eligible recipients list.
type SelectRecipientRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// SubmitRequest holds the optional submission fields.
type SubmitRequest struct {
	OrderTime *time.Time `json:"orderTime"`
}
