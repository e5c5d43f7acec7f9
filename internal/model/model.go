// Package model содержит доменные сущности пиццерии: черновики форм, расчёт стоимости и чек.
package model

import (
	"slices"
	"time"
)

// Gender описывает выбранный в форме регистрации пол.
type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid сообщает, выбран ли один из допустимых вариантов.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// RegistrationDraft содержит текущее состояние формы регистрации.
type RegistrationDraft struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Gender          Gender `json:"gender"`
	AcceptTerms     bool   `json:"acceptTerms"`
}

// RegisteredUser сохраняется после успешной регистрации. Пароли не сохраняются.
type RegisteredUser struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Gender      Gender `json:"gender"`
	AcceptTerms bool   `json:"acceptTerms"`
}

// OrderDraft содержит изменяемый черновик заказа.
type OrderDraft struct {
	CustomerName        string         `json:"customerName"`
	Phone               string         `json:"phone"`
	Email               string         `json:"email"`
	IsDelivery          bool           `json:"isDelivery"`
	Address             string         `json:"address"`
	Size                string         `json:"size"`
	Crust               string         `json:"crust"`
	Qty                 int            `json:"qty"`
	Toppings            []string       `json:"toppings"`
	SidesQty            map[string]int `json:"sidesQty"`
	SpecialInstructions string         `json:"specialInstructions"`
}

// DefaultOrderDraft возвращает черновик заказа по умолчанию.
func DefaultOrderDraft() OrderDraft {
	return OrderDraft{
		IsDelivery: true,
		Size:       "medium",
		Crust:      "regular",
		Qty:        1,
		Toppings:   []string{},
		SidesQty:   map[string]int{},
	}
}

// Clone возвращает копию черновика, не разделяющую срезы и карты с оригиналом.
func (d OrderDraft) Clone() OrderDraft {
	c := d
	c.Toppings = slices.Clone(d.Toppings)
	if c.Toppings == nil {
		c.Toppings = []string{}
	}
	c.SidesQty = make(map[string]int, len(d.SidesQty))
	for k, v := range d.SidesQty {
		c.SidesQty[k] = v
	}
	return c
}

// HasTopping сообщает, выбран ли топпинг.
func (d OrderDraft) HasTopping(id string) bool {
	return slices.Contains(d.Toppings, id)
}

// SideLine описывает строку расчёта по одному гарниру.
type SideLine struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Qty   int    `json:"qty"`
	Total int64  `json:"total"`
}

// Pricing содержит производный расчёт стоимости заказа.
type Pricing struct {
	PizzaTotal    int64      `json:"pizzaTotal"`
	ToppingsTotal int64      `json:"toppingsTotal"`
	SidesTotal    int64      `json:"sidesTotal"`
	SidesLines    []SideLine `json:"sidesLines"`
	DeliveryFee   int64      `json:"deliveryFee"`
	Subtotal      int64      `json:"subtotal"`
	Total         int64      `json:"total"`
}

// Customer содержит контактные данные покупателя в чеке.
type Customer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	IsDelivery bool   `json:"isDelivery"`
	Address    string `json:"address"`
}

// ReceiptLine описывает позицию чека.
type ReceiptLine struct {
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Total int64  `json:"total"`
}

// Receipt содержит неизменяемый снимок размещённого заказа.
type Receipt struct {
	ID                  string        `json:"id"`
	CreatedAt           time.Time     `json:"createdAt"`
	Customer            Customer      `json:"customer"`
	Lines               []ReceiptLine `json:"lines"`
	Subtotal            int64         `json:"subtotal"`
	DeliveryFee         int64         `json:"deliveryFee"`
	Total               int64         `json:"total"`
	SpecialInstructions string        `json:"specialInstructions"`
}
