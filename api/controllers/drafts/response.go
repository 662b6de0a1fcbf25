package drafts

import (
	"github.com/shopspring/decimal"

	draftsdto "github.com/angelmondragon/orderdraft/api/controllers/drafts/dto"
	draftsvc "github.com/angelmondragon/orderdraft/internal/drafts"
	"github.com/angelmondragon/orderdraft/pkg/adminapi"
)

const moneyPlaces = 2

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

func newTotals(t draftsvc.Totals) draftsdto.Totals {
	return draftsdto.Totals{
		Subtotal:   money(t.Subtotal),
		Tax:        money(t.Tax),
		Shipping:   money(t.Shipping),
		Discount:   money(t.Discount),
		GrandTotal: money(t.GrandTotal),
	}
}

func newDraft(d *draftsvc.Draft, totals draftsvc.Totals, warnings []draftsvc.Warning) draftsdto.Draft {
	lines := make([]draftsdto.Line, 0, len(d.Lines))
	for i, line := range d.Lines {
		qty := d.Quantity(line.ID)
		lines = append(lines, draftsdto.Line{
			Index:       i,
			ID:          line.ID,
			Name:        line.DisplayName(),
			Description: line.DisplayDescription(),
			ImageURL:    line.DisplayImage(),
			Stock:       line.Product.Stock,
			SalePrice:   money(line.SalePrice),
			CostPrice:   money(line.CostPrice),
			Profit:      money(line.Profit),
			Quantity:    qty,
			LineTotal:   money(draftsvc.LineTotal(line, qty)),
		})
	}

	out := draftsdto.Draft{
		ID:            d.ID,
		ShopID:        d.ShopID,
		State:         d.State(),
		TotalSelected: d.TotalSelected(),
		Lines:         lines,
		Totals:        newTotals(totals),
		Warnings:      warnings,
		UpdatedAt:     d.UpdatedAt,
	}
	if r := d.Recipient; r != nil {
		out.Recipient = &draftsdto.Recipient{
			UserID:  r.UserID,
			Email:   orNotAvailable(r.Email),
			Phone:   orNotAvailable(r.Phone),
			Address: r.Address,
			Color:   draftsvc.ColorFor(r.UserID),
		}
	}
	return out
}

func newSnapshot(s *draftsvc.Snapshot) draftsdto.Draft {
	return newDraft(s.Draft, s.Totals, s.Warnings)
}

func orNotAvailable(value string) string {
	if value == "" {
		return adminapi.NotAvailable
	}
	return value
}

func toShopProduct(req draftsdto.AddLineRequest) adminapi.ShopProduct {
	return adminapi.ShopProduct{
		ID:        req.ID,
		SalePrice: req.SalePrice,
		CostPrice: req.CostPrice,
		Profit:    req.Profit,
		Product: adminapi.Product{
			Name:        req.Product.Name,
			Description: req.Product.Description,
			ImageURLs:   req.Product.ImageURLs,
			Stock:       req.Product.Stock,
		},
	}
}
