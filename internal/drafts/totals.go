package drafts

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	"github.com/angelmondragon/orderdraft/pkg/config"
)

const moneyPlaces = 2

// Pricing holds the order-level charges applied on top of the line subtotal.
type Pricing struct {
	TaxRate  decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
}

// DefaultPricing is 8% tax, 5.00 flat shipping and no discount.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:  decimal.RequireFromString("0.08"),
		Shipping: decimal.RequireFromString("5.00"),
		Discount: decimal.Zero,
	}
}

// PricingFromConfig reads the pricing knobs from the drafts config.
func PricingFromConfig(cfg config.DraftsConfig) Pricing {
	return Pricing{
		TaxRate:  cfg.TaxRate,
		Shipping: cfg.ShippingFlat,
		Discount: cfg.Discount,
	}
}

// Totals are derived from a draft on demand and never stored.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// LineTotal is salePrice × quantity, unrounded.
func LineTotal(item adminapi.ShopProduct, quantity int) decimal.Decimal {
	return item.SalePrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ComputeTotals is a pure function of the draft and pricing.
// Subtotal is exact; tax and grand total are rounded half away from zero to cents.
func ComputeTotals(d *Draft, p Pricing) Totals {
	subtotal := decimal.Zero
	if d != nil {
		for _, line := range d.Lines {
			subtotal = subtotal.Add(LineTotal(line, d.Quantity(line.ID)))
		}
	}
	tax := subtotal.Mul(p.TaxRate).Round(moneyPlaces)
	grand := subtotal.Add(tax).Add(p.Shipping).Sub(p.Discount).Round(moneyPlaces)
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   p.Shipping,
		Discount:   p.Discount,
		GrandTotal: grand,
	}
}
