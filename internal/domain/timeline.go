package domain

import (
	"strings"
	"time"
)

const (
	TimelineOrderPlaced        = "OrderPlaced"
	TimelineOrderStatusChanged = "OrderStatusChanged"
)

// TimelineEvent — строка истории заявки в админке.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// StatusNote описывает переход для истории: "new -> contacted: перезвонить вечером".
func StatusNote(from, to OrderStatus, comment string) string {
	note := string(from) + " -> " + string(to)
	if comment = strings.TrimSpace(comment); comment != "" {
		note += ": " + comment
	}
	return note
}
