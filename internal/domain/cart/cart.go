// Package cart implements the in-memory cart for one open sale. A cart is
// bound to a sale session by the sale manager and lives only until that sale
// is finalized or cancelled.
//
// The cart is not safe for concurrent use; the sale manager serializes
// access per session.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/torneiradigital/pos-server/internal/domain/product"
)

// Line is one product entry in the cart. Name, category, unit price and the
// stock bound are snapshots copied at add-time; they are deliberately not
// refreshed afterwards.
type Line struct {
	ProductID string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Stock     int
	Quantity  int
	Discount  decimal.Decimal
}

// Totals is the derived pricing of the whole cart.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Cart holds the ordered collection of lines for the open sale.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds quantity of p to the cart. An existing line for the same
// product grows instead of duplicating. Quantity is clamped to the product's
// stock snapshot; excess is dropped silently, the clamp is a UI guardrail
// rather than a business failure. Callers are expected to not offer
// out-of-stock products, so adding one is a no-op.
func (c *Cart) AddItem(p product.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if p.Stock <= 0 {
		return
	}

	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity = clamp(c.lines[i].Quantity+quantity, c.lines[i].Stock)
		return
	}

	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		UnitPrice: p.Price,
		Stock:     p.Stock,
		Quantity:  clamp(quantity, p.Stock),
	})
}

// RemoveItem removes the line for productID. Removing an absent line is a
// no-op.
func (c *Cart) RemoveItem(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetQuantity sets the line's quantity, clamped to [0, stock snapshot]. A
// resulting quantity of zero removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) {
	i := c.index(productID)
	if i < 0 {
		return
	}

	if quantity < 0 {
		quantity = 0
	}
	quantity = clamp(quantity, c.lines[i].Stock)

	if quantity == 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
	c.lines[i].Quantity = quantity
}

// ApplyItemDiscount sets the line's discount, clamped to >= 0. The discount
// is not bounded by the line subtotal: a discount above it acts as a manual
// price override and yields a negative line total.
func (c *Cart) ApplyItemDiscount(productID string, amount decimal.Decimal) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	c.lines[i].Discount = amount
}

// Clear empties the cart. Idempotent.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals computes subtotal, discount sum and total. Always holds
// Total = Subtotal - Discount, including for the empty cart.
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, l := range c.lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		discount = discount.Add(l.Discount)
	}
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}
