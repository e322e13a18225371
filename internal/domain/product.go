package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Product — товар каталога, продаётся наборами.
type Product struct {
	ID         string
	CatalogID  string
	Name       string
	SKU        string
	PriceMinor int64
	// QuantityPerSet — исходная строка вида "6 pcs per set".
	QuantityPerSet string
	// MOQ выводится из QuantityPerSet.
	MOQ       int32
	ImageURLs []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var firstNumber = regexp.MustCompile(`\d+`)

// ParseQuantityPerSet извлекает первое целое из строки "штук в наборе".
// Пустая строка или строка без числа даёт 1.
func ParseQuantityPerSet(s string) int32 {
	match := firstNumber.FindString(strings.TrimSpace(s))
	if match == "" {
		return 1
	}
	n, err := strconv.ParseInt(match, 10, 32)
	if err != nil || n < 1 {
		return 1
	}
	return int32(n)
}

// Validate проверяет обязательные поля товара.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductNameRequired
	}
	if p.CatalogID == "" {
		return ErrCatalogIDRequired
	}
	if p.PriceMinor < 0 {
		return ErrItemPriceInvalid
	}
	if p.MOQ < 1 {
		return ErrMOQInvalid
	}
	return nil
}
