// Package cart holds the client-side cart model. The server uses it to
// normalize incoming cart payloads before checkout and shipping estimates.
package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

// Cart keeps at most one entry per product id in insertion order.
// It is not safe for concurrent use.
type Cart struct {
	items []model.Product
	index map[string]int
}

func New(products ...model.Product) *Cart {
	c := &Cart{index: make(map[string]int, len(products))}
	for _, p := range products {
		c.Add(p)
	}
	return c
}

// Add appends p unless an entry with the same id exists. The first entry wins.
func (c *Cart) Add(p model.Product) bool {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return false
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, exists := c.index[id]; exists {
		return false
	}
	p.ID = id
	c.index[id] = len(c.items)
	c.items = append(c.items, p)
	return true
}

func (c *Cart) Remove(id string) bool {
	pos, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return false
	}
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	delete(c.index, strings.TrimSpace(id))
	for i := pos; i < len(c.items); i++ {
		c.index[c.items[i].ID] = i
	}
	return true
}

func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]int)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Items() []model.Product {
	out := make([]model.Product, len(c.items))
	copy(out, c.items)
	return out
}

// Total is informational; checkout charges catalog prices.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.items {
		total = total.Add(p.Amount)
	}
	return total
}
