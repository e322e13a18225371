package app

import "github.com/vladislavdragonenkov/textilestore/internal/domain"

func testOutboxMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "order-" + id,
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"event_type":"order.placed"}`),
	}
}
