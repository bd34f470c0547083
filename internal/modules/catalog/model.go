package catalog

import (
	"strings"

	"github.com/spf13/cast"
)

const (
	// ServiceCategory marks every bookable service and no sellable good.
	ServiceCategory = "Services"
	// ServiceStock stands in for "unlimited" on services.
	ServiceStock = 999999

	AllCategory          = "All"
	PhoneCategory        = "Inventory"
	GeneralCategory      = "General Items"
	GeneralServiceType   = "General Service"
	unnamedProduct       = "Unnamed Product"
	unnamedService       = "Unnamed Service"
	serviceNumberPrefix  = "SERVICE-"
	serviceNumberIDChars = 8
)

// Item is a sellable catalog entry, either a good or a service.
type Item struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory,omitempty"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	Barcode       string  `json:"barcode,omitempty"`
	ProductNumber string  `json:"product_number,omitempty"`
	Description   string  `json:"description,omitempty"`
	Image         string  `json:"image,omitempty"`
	Active        bool    `json:"active"`
	HasPhoneData  bool    `json:"-"`
}

// IsService reports whether the item came from the services collection.
func (i Item) IsService() bool { return i.Category == ServiceCategory }

// Record is an untyped upstream document as delivered by a Source.
type Record struct {
	ID     string
	Fields map[string]interface{}
}

// MapGood converts a goods document into an Item.
//
// Defaults: name "Unnamed Product"; price is the first non-zero of sellingPrice,
// sellPrice, price; category is categoryName then category, and a missing or
// "Services" category becomes "Inventory" for phone records or "General Items"
// otherwise; subcategory is brand then subcategory; stock is onHand; the
// description falls back to "Product: <productNumber>"; active defaults to true.
func MapGood(r Record) Item {
	productNumber := r.str("productNumber")
	description := r.str("description")
	if description == "" {
		description = "Product: " + productNumber
	}
	_, hasPhone := r.Fields["phoneData"]

	item := Item{
		ID:            r.ID,
		Name:          r.strOr(unnamedProduct, "name"),
		Price:         r.firstNonZero("sellingPrice", "sellPrice", "price"),
		Category:      r.str("categoryName", "category"),
		Subcategory:   r.str("brand", "subcategory"),
		Stock:         cast.ToInt(r.Fields["onHand"]),
		Barcode:       r.str("barcode"),
		ProductNumber: productNumber,
		Description:   description,
		Image:         r.str("image"),
		Active:        r.active(),
		HasPhoneData:  hasPhone && r.Fields["phoneData"] != nil,
	}
	item.Category = goodsCategory(item)
	return item
}

// MapService converts a services document into an Item. Services always carry
// the "Services" category; their type (typeLabel, then type, then
// "General Service") goes in Subcategory.
func MapService(r Record) Item {
	id := r.ID
	if len(id) > serviceNumberIDChars {
		id = id[:serviceNumberIDChars]
	}
	return Item{
		ID:            r.ID,
		Name:          r.strOr(unnamedService, "name"),
		Price:         cast.ToFloat64(r.Fields["price"]),
		Category:      ServiceCategory,
		Subcategory:   r.strOr(GeneralServiceType, "typeLabel", "type"),
		Stock:         ServiceStock,
		Barcode:       r.str("barcode"),
		ProductNumber: serviceNumberPrefix + id,
		Description:   r.str("description"),
		Image:         r.str("image"),
		Active:        r.active(),
	}
}

func goodsCategory(item Item) string {
	category := strings.TrimSpace(item.Category)
	if category == "" || category == ServiceCategory {
		if item.HasPhoneData {
			return PhoneCategory
		}
		return GeneralCategory
	}
	return category
}

// ── record accessors ─────────────────────────────────────────────────────────

func (r Record) str(keys ...string) string {
	for _, k := range keys {
		v, ok := r.Fields[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			return s
		}
	}
	return ""
}

func (r Record) strOr(fallback string, keys ...string) string {
	if s := r.str(keys...); s != "" {
		return s
	}
	return fallback
}

func (r Record) firstNonZero(keys ...string) float64 {
	for _, k := range keys {
		if v := cast.ToFloat64(r.Fields[k]); v != 0 {
			return v
		}
	}
	return 0
}

func (r Record) active() bool {
	v, ok := r.Fields["isActive"]
	if !ok || v == nil {
		return true
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return true
	}
	return b
}
