package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapGood_Defaults(t *testing.T) {
	item := MapGood(rec("g1", nil))

	assert.Equal(t, "g1", item.ID)
	assert.Equal(t, "Unnamed Product", item.Name)
	assert.Equal(t, GeneralCategory, item.Category)
	assert.Equal(t, 0.0, item.Price)
	assert.Equal(t, "Product: ", item.Description)
	assert.True(t, item.Active)
	assert.False(t, item.IsService())
}

func TestMapGood_PricePrecedence(t *testing.T) {
	assert.Equal(t, 4.5, MapGood(rec("a", map[string]interface{}{
		"sellingPrice": 4.5, "sellPrice": 3.0, "price": 2.0,
	})).Price)
	assert.Equal(t, 3.0, MapGood(rec("b", map[string]interface{}{
		"sellingPrice": 0, "sellPrice": "3", "price": 2.0,
	})).Price)
	assert.Equal(t, 2.0, MapGood(rec("c", map[string]interface{}{"price": 2})).Price)
}

func TestMapGood_Fields(t *testing.T) {
	item := MapGood(rec("g2", map[string]interface{}{
		"name":          "Cola",
		"categoryName":  "Drinks",
		"category":      "ignored",
		"brand":         "Fizz",
		"onHand":        float64(12),
		"barcode":       " 0123456 ",
		"productNumber": "P-9",
		"isActive":      false,
	}))

	assert.Equal(t, "Cola", item.Name)
	assert.Equal(t, "Drinks", item.Category)
	assert.Equal(t, "Fizz", item.Subcategory)
	assert.Equal(t, 12, item.Stock)
	assert.Equal(t, "0123456", item.Barcode)
	assert.Equal(t, "Product: P-9", item.Description)
	assert.False(t, item.Active)
}

func TestMapGood_CategoryHeuristic(t *testing.T) {
	phone := MapGood(rec("p", map[string]interface{}{
		"phoneData": map[string]interface{}{"imei": "123"},
	}))
	assert.Equal(t, PhoneCategory, phone.Category)

	marked := MapGood(rec("s", map[string]interface{}{"category": ServiceCategory}))
	assert.Equal(t, GeneralCategory, marked.Category, "goods never carry the service marker")
}

func TestMapService(t *testing.T) {
	item := MapService(rec("svc-123456789", map[string]interface{}{
		"name":      "Screen repair",
		"price":     49.99,
		"typeLabel": "Repair",
		"type":      "repair",
		"category":  "Phones",
	}))

	assert.Equal(t, ServiceCategory, item.Category)
	assert.Equal(t, "Repair", item.Subcategory)
	assert.Equal(t, ServiceStock, item.Stock)
	assert.Equal(t, "SERVICE-svc-1234", item.ProductNumber)
	assert.Equal(t, 49.99, item.Price)
	assert.True(t, item.IsService())

	bare := MapService(rec("x", nil))
	assert.Equal(t, "Unnamed Service", bare.Name)
	assert.Equal(t, GeneralServiceType, bare.Subcategory)
	assert.Equal(t, "SERVICE-x", bare.ProductNumber)
}
