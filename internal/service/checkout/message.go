package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vladislavdragonenkov/textilestore/internal/cart"
)

// Customer — контактные данные покупателя из формы оформления.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	City  string `json:"city,omitempty"`
	Note  string `json:"note,omitempty"`
}

// PriceFormatter форматирует суммы в пайсах как рупии.
type PriceFormatter struct {
	printer *message.Printer
}

// NewPriceFormatter создаёт форматтер для локали; пустая строка означает en-IN.
func NewPriceFormatter(locale string) *PriceFormatter {
	tag := language.MustParse("en-IN")
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return &PriceFormatter{printer: message.NewPrinter(tag)}
}

// Format возвращает сумму вида ₹12,345.50.
func (f *PriceFormatter) Format(amountMinor int64) string {
	sign := ""
	if amountMinor < 0 {
		sign = "-"
		amountMinor = -amountMinor
	}
	return sign + "₹" + f.printer.Sprintf("%d", amountMinor/100) + fmt.Sprintf(".%02d", amountMinor%100)
}

// BuildMessage собирает текст заявки для отправки в WhatsApp.
func BuildMessage(orderRef string, customer Customer, state cart.State, f *PriceFormatter) string {
	if f == nil {
		f = NewPriceFormatter("")
	}

	var b strings.Builder
	b.WriteString("Hello! I would like to place a wholesale order.\n")
	if orderRef != "" {
		fmt.Fprintf(&b, "Order ref: %s\n", orderRef)
	}
	b.WriteString("\n")

	for i, item := range state.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
		fmt.Fprintf(&b, "   Qty: %d (MOQ %d) x %s = %s\n",
			item.Quantity, item.MOQ, f.Format(item.PriceMinor), f.Format(item.PriceMinor*int64(item.Quantity)))
		if note := strings.TrimSpace(item.Note); note != "" {
			fmt.Fprintf(&b, "   Note: %s\n", note)
		}
	}
	fmt.Fprintf(&b, "\nTotal: %d pcs, %s\n\n", cart.TotalItems(state), f.Format(cart.TotalPrice(state)))

	fmt.Fprintf(&b, "Name: %s\n", customer.Name)
	fmt.Fprintf(&b, "Phone: %s\n", customer.Phone)
	if customer.City != "" {
		fmt.Fprintf(&b, "City: %s\n", customer.City)
	}
	if customer.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", customer.Note)
	}
	return strings.TrimRight(b.String(), "\n")
}

// WhatsAppURL строит click-to-chat ссылку wa.me. Из номера остаются только цифры.
func WhatsAppURL(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	link := "https://wa.me/" + digits
	if text == "" {
		return link
	}
	return link + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
