package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/marios-pizza/internal/model"
)

const (
	header       = "Mario’s Pizza — Order Confirmation"
	dateLayout   = "2/1/2006, 3:04:05 pm"
	rupeeSymbol  = "₹"
	currencyUnit = 2
)

// ToText формирует детерминированное текстовое представление чека для копирования в буфер обмена.
// Дата выводится в часовом поясе loc; при nil используется пояс самого чека.
func ToText(r model.Receipt, loc *time.Location) string {
	created := r.CreatedAt
	if loc != nil {
		created = created.In(loc)
	}

	out := []string{
		header,
		"Order ID: " + r.ID,
		"Date: " + created.Format(dateLayout),
		"",
		"Customer: " + r.Customer.Name,
		"Phone: " + r.Customer.Phone,
		"Email: " + r.Customer.Email,
	}

	if r.Customer.IsDelivery {
		out = append(out, "Delivery: "+r.Customer.Address)
	} else {
		out = append(out, "Pickup")
	}

	out = append(out, "", "Items:")
	for _, l := range r.Lines {
		line := "- " + l.Name
		if l.Qty > 1 {
			line += fmt.Sprintf(" × %d", l.Qty)
		}
		if l.Total != 0 {
			line += " — " + FormatINR(l.Total)
		}
		out = append(out, line)
	}

	out = append(out,
		"",
		"Subtotal: "+FormatINR(r.Subtotal),
		"Delivery: "+FormatINR(r.DeliveryFee),
		"TOTAL: "+FormatINR(r.Total),
	)

	if r.SpecialInstructions != "" {
		out = append(out, "Note: "+r.SpecialInstructions)
	}

	return strings.Join(out, "\n")
}

// FormatINR форматирует сумму в рупиях с индийской группировкой разрядов: ₹1,23,456.00.
func FormatINR(amount int64) string {
	s := decimal.NewFromInt(amount).StringFixed(currencyUnit)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	return sign + rupeeSymbol + groupIndian(intPart) + "." + frac
}

// groupIndian отделяет последние три разряда, остальные группирует по два.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(append(groups, tail), ",")
}
