// Package pricing рассчитывает стоимость заказа по черновику и каталогу.
package pricing

import (
	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/model"
)

// Ограничения количества и фиксированная стоимость доставки.
const (
	MinQty      = 1
	MaxQty      = 10
	MinSideQty  = 0
	MaxSideQty  = 99
	DeliveryFee = 40
)

// Calculator рассчитывает стоимость заказа по переданному каталогу.
type Calculator struct {
	catalog *catalog.Catalog
}

// NewCalculator создаёт калькулятор стоимости для каталога.
func NewCalculator(c *catalog.Catalog) *Calculator {
	return &Calculator{catalog: c}
}

// ClampInt ограничивает значение диапазоном [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Calculate возвращает детализированный расчёт стоимости. Безопасен для неполных и некорректных черновиков.
func (c *Calculator) Calculate(d model.OrderDraft) model.Pricing {
	var base int64
	if size, ok := c.catalog.Size(d.Size); ok {
		base += size.Price
	}
	if crust, ok := c.catalog.Crust(d.Crust); ok {
		base += crust.Price
	}

	qty := int64(ClampInt(d.Qty, MinQty, MaxQty))

	var toppingsSingle int64
	seen := make(map[string]struct{}, len(d.Toppings))
	for _, id := range d.Toppings {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if t, ok := c.catalog.Topping(id); ok {
			toppingsSingle += t.Price
		}
	}

	p := model.Pricing{
		PizzaTotal:    (base + toppingsSingle) * qty,
		ToppingsTotal: toppingsSingle * qty,
		SidesLines:    []model.SideLine{},
	}

	for _, s := range c.catalog.Sides {
		q := ClampInt(d.SidesQty[s.ID], MinSideQty, MaxSideQty)
		if q == 0 {
			continue
		}
		line := model.SideLine{
			ID:    s.ID,
			Name:  s.Name,
			Price: s.Price,
			Qty:   q,
			Total: s.Price * int64(q),
		}
		p.SidesLines = append(p.SidesLines, line)
		p.SidesTotal += line.Total
	}

	if d.IsDelivery {
		p.DeliveryFee = DeliveryFee
	}

	p.Subtotal = p.PizzaTotal + p.SidesTotal
	p.Total = p.Subtotal + p.DeliveryFee

	return p
}
