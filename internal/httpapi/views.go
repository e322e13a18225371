package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

type catalogView struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Fabric        string    `json:"fabric,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCatalogView(c domain.Catalog) catalogView {
	return catalogView{
		ID:            c.ID,
		Slug:          c.Slug,
		Name:          c.Name,
		Description:   c.Description,
		Fabric:        c.Fabric,
		CoverImageURL: c.CoverImageURL,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type productView struct {
	ID             string    `json:"id"`
	CatalogID      string    `json:"catalog_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku,omitempty"`
	PriceMinor     int64     `json:"price_minor"`
	QuantityPerSet string    `json:"quantity_per_set,omitempty"`
	MOQ            int32     `json:"moq"`
	ImageURLs      []string  `json:"image_urls"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProductView(p domain.Product) productView {
	images := p.ImageURLs
	if images == nil {
		images = []string{}
	}
	return productView{
		ID:             p.ID,
		CatalogID:      p.CatalogID,
		Name:           p.Name,
		SKU:            p.SKU,
		PriceMinor:     p.PriceMinor,
		QuantityPerSet: p.QuantityPerSet,
		MOQ:            p.MOQ,
		ImageURLs:      images,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toProductView(p))
	}
	return out
}

type orderItemView struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	MOQ        int32  `json:"moq"`
	Note       string `json:"note,omitempty"`
}

type orderView struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	City         string          `json:"city,omitempty"`
	Note         string          `json:"note,omitempty"`
	Status       string          `json:"status"`
	Currency     string          `json:"currency"`
	AmountMinor  int64           `json:"amount_minor"`
	Items        []orderItemView `json:"items"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toOrderView(o domain.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemView{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Qty:        it.Qty,
			PriceMinor: it.PriceMinor,
			MOQ:        it.MOQ,
			Note:       it.Note,
		})
	}
	return orderView{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		City:         o.City,
		Note:         o.Note,
		Status:       string(o.Status),
		Currency:     o.Currency,
		AmountMinor:  o.AmountMinor,
		Items:        items,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

type timelineView struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type cartView struct {
	Items      []cart.CartItem `json:"items"`
	IsOpen     bool            `json:"is_open"`
	TotalItems int64           `json:"total_items"`
	TotalPrice int64           `json:"total_price_minor"`
}

func toCartView(state cart.State) cartView {
	items := state.Items
	if items == nil {
		items = []cart.CartItem{}
	}
	return cartView{
		Items:      items,
		IsOpen:     state.IsOpen,
		TotalItems: cart.TotalItems(state),
		TotalPrice: cart.TotalPrice(state),
	}
}
