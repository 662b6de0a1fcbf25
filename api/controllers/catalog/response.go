package catalog

import (
	"github.com/angelmondragon/orderdraft/internal/drafts"
	"github.com/angelmondragon/orderdraft/pkg/adminapi"
	"github.com/angelmondragon/orderdraft/pkg/pagination"
)

type updateAddressRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

type productView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Stock       int    `json:"stock"`
	SalePrice   string `json:"salePrice"`
	CostPrice   string `json:"price"`
	Profit      string `json:"profit"`
}

type productPageView struct {
	Items []productView   `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

type recipientView struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	Address     string           `json:"address"`
	HasAddress  bool             `json:"hasAddress"`
	Color       drafts.ColorPair `json:"color"`
}

func newProductPage(page *adminapi.ProductPage) productPageView {
	if page == nil {
		return productPageView{Items: []productView{}}
	}
	items := make([]productView, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, productView{
			ID:          p.ID,
			Name:        p.DisplayName(),
			Description: p.DisplayDescription(),
			ImageURL:    p.DisplayImage(),
			Stock:       p.Product.Stock,
			SalePrice:   p.SalePrice.StringFixed(2),
			CostPrice:   p.CostPrice.StringFixed(2),
			Profit:      p.Profit.StringFixed(2),
		})
	}
	return productPageView{Items: items, Meta: page.Meta}
}

func newRecipient(u adminapi.User) recipientView {
	phone := u.Phone
	if phone == "" {
		phone = adminapi.NotAvailable
	}
	return recipientView{
		ID:          u.ID,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		Phone:       phone,
		Address:     u.Address,
		HasAddress:  u.HasAddress(),
		Color:       drafts.ColorFor(u.ID),
	}
}
