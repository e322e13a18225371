package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderEvent — полезная нагрузка outbox-событий заявки.
type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	CustomerName   string    `json:"customer_name"`
	Phone          string    `json:"phone"`
	City           string    `json:"city,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Currency       string    `json:"currency"`
	AmountMinor    int64     `json:"amount_minor"`
	ItemCount      int       `json:"item_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewOrderEvent снимает событие с текущего состояния заявки.
func NewOrderEvent(eventType string, order Order, previous OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		EventType:      eventType,
		OrderID:        order.ID,
		CustomerName:   order.CustomerName,
		Phone:          order.Phone,
		City:           order.City,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Currency:       order.Currency,
		AmountMinor:    order.AmountMinor,
		ItemCount:      len(order.Items),
		Timestamp:      at.UTC(),
	}
}

// OutboxMessage упаковывает событие для transactional outbox.
func (e OrderEvent) OutboxMessage() (OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   e.OrderID,
		EventType:     e.EventType,
		Payload:       payload,
	}, nil
}
