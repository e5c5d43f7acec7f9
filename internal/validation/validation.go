// Package validation содержит функции проверки черновиков регистрации и заказа.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mmeshcher/marios-pizza/internal/model"
)

// Errors сопоставляет имени поля сообщение об ошибке. Пустая карта означает корректный черновик.
type Errors map[string]string

// Valid сообщает об отсутствии ошибок.
func (e Errors) Valid() bool {
	return len(e) == 0
}

var (
	// \s в RE2 покрывает только ASCII, поэтому юникодные пробелы исключаются явно.
	emailRegex = regexp.MustCompile(`^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`)
	phoneRegex = regexp.MustCompile(`^[\d\s\-()+]{10,}$`)
	// Допустимый алфавит пароля; наличие каждого класса символов проверяется отдельно.
	passwordAlphabet = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

const passwordSpecials = "@$!%*?&"

// ValidateRegistration проверяет черновик формы регистрации.
func ValidateRegistration(r model.RegistrationDraft) Errors {
	errs := Errors{}

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(name) < 2:
		errs["name"] = "Name must be at least 2 characters"
	}

	if msg := checkEmail(r.Email); msg != "" {
		errs["email"] = msg
	}

	if msg := checkPhone(r.Phone); msg != "" {
		errs["phone"] = msg
	}

	switch {
	case r.Password == "":
		errs["password"] = "Password is required"
	case !IsStrongPassword(r.Password):
		errs["password"] = "8+ chars with uppercase, lowercase, number, and special (@$!%*?&)"
	}

	switch {
	case r.ConfirmPassword == "":
		errs["confirmPassword"] = "Confirm password is required"
	case r.ConfirmPassword != r.Password:
		errs["confirmPassword"] = "Passwords do not match"
	}

	if !r.Gender.Valid() {
		errs["gender"] = "Please select gender"
	}

	if !r.AcceptTerms {
		errs["acceptTerms"] = "You must accept Terms & Conditions"
	}

	return errs
}

// ValidateOrder проверяет черновик заказа. Количество гарниров не проверяется: оно ограничивается при расчёте.
func ValidateOrder(o model.OrderDraft) Errors {
	errs := Errors{}

	if strings.TrimSpace(o.CustomerName) == "" {
		errs["customerName"] = "Customer name is required"
	}

	if msg := checkPhone(o.Phone); msg != "" {
		errs["phone"] = msg
	}

	if msg := checkEmail(o.Email); msg != "" {
		errs["email"] = msg
	}

	if o.IsDelivery && strings.TrimSpace(o.Address) == "" {
		errs["address"] = "Delivery address is required"
	}

	if o.Size == "" {
		errs["size"] = "Select a size"
	}
	if o.Crust == "" {
		errs["crust"] = "Select a crust"
	}

	if o.Qty < 1 {
		errs["qty"] = "Quantity must be at least 1"
	}

	// Бизнес-правило: хотя бы один топпинг.
	if len(o.Toppings) == 0 {
		errs["toppings"] = "Select at least one topping"
	}

	return errs
}

// IsValidEmail проверяет формат local@domain.tld.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhone проверяет номер телефона после удаления пробельных символов.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(stripSpaces(phone))
}

// IsStrongPassword проверяет длину, алфавит и наличие строчной, заглавной буквы, цифры и спецсимвола.
func IsStrongPassword(p string) bool {
	if !passwordAlphabet.MatchString(p) {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return lower && upper && digit && special
}

func checkEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "Email is required"
	}
	if !IsValidEmail(email) {
		return "Invalid email format"
	}
	return ""
}

func checkPhone(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return "Phone number is required"
	}
	if !IsValidPhone(phone) {
		return "Invalid phone number"
	}
	return ""
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
