package kafka

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// OrderNotifier пишет в лог уведомления для менеджеров о новых заявках
// и сменах статуса. onEvent вызывается для каждого разобранного события.
func OrderNotifier(logger *log.Entry, onEvent func(domain.OrderEvent)) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "order-notifier")
	}
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParseOrderEvent(message)
		if err != nil {
			return Permanent(err)
		}

		entry := logger.WithFields(log.Fields{
			"order_id":     event.OrderID,
			"customer":     event.CustomerName,
			"phone":        event.Phone,
			"city":         event.City,
			"amount_minor": event.AmountMinor,
			"status":       event.Status,
		})
		switch event.EventType {
		case domain.EventOrderPlaced:
			entry.WithField("items", event.ItemCount).Info("new wholesale enquiry")
		case domain.EventOrderStatusChanged:
			entry.WithField("previous_status", event.PreviousStatus).Info("order status changed")
		default:
			entry.WithField("event_type", event.EventType).Debug("ignoring unknown order event")
			return nil
		}

		if onEvent != nil {
			onEvent(event)
		}
		return nil
	}
}
