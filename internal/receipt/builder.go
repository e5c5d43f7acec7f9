// Package receipt формирует чек размещённого заказа и его текстовое представление.
package receipt

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/model"
	"github.com/mmeshcher/marios-pizza/internal/pricing"
)

const orderIDPrefix = "ORD-"

// Builder собирает чек из черновика заказа и рассчитанной стоимости.
type Builder struct {
	catalog *catalog.Catalog
	now     func() time.Time
	newID   func() string
}

// Option настраивает Builder.
type Option func(*Builder)

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator задаёт генератор идентификаторов заказа.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// NewBuilder создаёт сборщик чеков для каталога.
func NewBuilder(c *catalog.Catalog, opts ...Option) *Builder {
	b := &Builder{
		catalog: c,
		now:     time.Now,
		newID:   NewOrderID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewOrderID генерирует короткий идентификатор вида ORD-9F3A1C.
func NewOrderID() string {
	u := uuid.New()
	return orderIDPrefix + strings.ToUpper(hex.EncodeToString(u[:3]))
}

// Build формирует чек. Черновик должен быть предварительно проверен validation.ValidateOrder.
func (b *Builder) Build(d model.OrderDraft, p model.Pricing) model.Receipt {
	var sizeName, crustName string
	if size, ok := b.catalog.Size(d.Size); ok {
		sizeName = size.Name
	}
	if crust, ok := b.catalog.Crust(d.Crust); ok {
		crustName = crust.Name
	}

	qty := pricing.ClampInt(d.Qty, pricing.MinQty, pricing.MaxQty)

	lines := []model.ReceiptLine{{
		Name:  fmt.Sprintf("Pizza: %s • %s (Qty %d)", sizeName, crustName, qty),
		Qty:   1,
		Total: p.PizzaTotal,
	}}

	// Стоимость топпингов уже входит в строку пиццы.
	if names := b.toppingNames(d); len(names) > 0 {
		lines = append(lines, model.ReceiptLine{
			Name:  "Toppings: " + strings.Join(names, ", "),
			Qty:   1,
			Total: 0,
		})
	}

	for _, l := range p.SidesLines {
		lines = append(lines, model.ReceiptLine{Name: l.Name, Qty: l.Qty, Total: l.Total})
	}

	if p.DeliveryFee > 0 {
		lines = append(lines, model.ReceiptLine{Name: "Delivery Fee", Qty: 1, Total: p.DeliveryFee})
	}

	return model.Receipt{
		ID:        b.newID(),
		CreatedAt: b.now(),
		Customer: model.Customer{
			Name:       d.CustomerName,
			Phone:      d.Phone,
			Email:      d.Email,
			IsDelivery: d.IsDelivery,
			Address:    d.Address,
		},
		Lines:               lines,
		Subtotal:            p.Subtotal,
		DeliveryFee:         p.DeliveryFee,
		Total:               p.Total,
		SpecialInstructions: d.SpecialInstructions,
	}
}

// toppingNames возвращает названия выбранных топпингов в порядке каталога.
func (b *Builder) toppingNames(d model.OrderDraft) []string {
	var names []string
	for _, t := range b.catalog.Toppings {
		if d.HasTopping(t.ID) {
			names = append(names, t.Name)
		}
	}
	return names
}
