package model

// MaxQuantity bounds a single cart line.
const MaxQuantity = 999

// CartItem is a requested bouquet quantity.
type CartItem struct {
	BouquetID int64 `json:"bouquet_id"`
	Quantity  int   `json:"quantity"`
}

// Cart accumulates selected bouquets in selection order.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Add increases quantity of bouquet, appending a new line when absent.
func (c *Cart) Add(bouquetID int64, quantity int) {
	for i := range c.Items {
		if c.Items[i].BouquetID == bouquetID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{BouquetID: bouquetID, Quantity: quantity})
}

// Quantity returns current quantity of bouquet, zero when absent.
func (c Cart) Quantity(bouquetID int64) int {
	for _, item := range c.Items {
		if item.BouquetID == bouquetID {
			return item.Quantity
		}
	}
	return 0
}

// Remove drops bouquet line and reports whether it was present.
func (c *Cart) Remove(bouquetID int64) bool {
	for i := range c.Items {
		if c.Items[i].BouquetID == bouquetID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Clone returns deep copy of cart.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}
