package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SnapshotOption is one banner option frozen inside a cart snapshot.
type SnapshotOption struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceCents      int    `json:"priceCents"`
	PricingMode     string `json:"pricingMode"`
	QuantityPerItem *int   `json:"quantityPerItem,omitempty"`
}

// SnapshotItem is one cart line frozen inside a cart snapshot.
type SnapshotItem struct {
	ID             string           `json:"id"`
	SKU            string           `json:"sku"`
	Title          string           `json:"title"`
	WidthIn        float64          `json:"widthIn,omitempty"`
	HeightIn       float64          `json:"heightIn,omitempty"`
	UnitPriceCents int              `json:"unitPriceCents"`
	Qty            int              `json:"qty"`
	Options        []SnapshotOption `json:"options,omitempty"`
}

// CartSnapshot is the cart_contents JSONB payload on abandoned_carts. It keeps
// enough detail to rebuild the cart from a recovery link.
type CartSnapshot struct {
	Items         []SnapshotItem `json:"items"`
	ShippingCents int            `json:"shippingCents"`
	SubtotalCents int            `json:"subtotalCents"`
}

// ItemCount returns the total unit count across all lines.
func (c CartSnapshot) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Qty
	}
	return count
}

// Value serializes the snapshot to JSON.
func (c CartSnapshot) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan decodes JSONB into the snapshot.
func (c *CartSnapshot) Scan(value interface{}) error {
	if value == nil {
		*c = CartSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}

// JSONMap is a free-form JSONB object column.
type JSONMap map[string]any

// Value serializes the map to JSON.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan decodes JSONB into the map.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded JSONMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// OptionsList persists the options selected on an order item as JSONB.
type OptionsList []SnapshotOption

// Value serializes the options to JSON.
func (o OptionsList) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Scan decodes JSONB into the options slice.
func (o *OptionsList) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded OptionsList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*o = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
