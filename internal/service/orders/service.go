package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
)

// Service ведёт жизненный цикл заявок: создание, смена статуса, timeline и outbox.
type Service struct {
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	metrics  *metrics.StoreMetrics
	logger   *log.Entry
	retry    RetryConfig
	now      func() time.Time
	sleep    func(time.Duration)
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает метрики витрины.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRetryConfig задаёт политику повторов при конфликте версий.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		if cfg.MaxAttempts > 0 {
			s.retry = cfg
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис заявок. timeline и outbox могут быть nil.
func NewService(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	s := &Service{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		retry:    DefaultRetryConfig(),
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place сохраняет новую заявку в статусе new и публикует order.placed.
func (s *Service) Place(order domain.Order) (domain.Order, error) {
	now := s.now()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Currency == "" {
		order.Currency = domain.DefaultCurrency
	}
	order.Status = domain.OrderStatusNew
	order.Version = 0
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.NewString()
		}
		order.Items[i].CreatedAt = now
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}
	if err := s.orders.Create(order); err != nil {
		return domain.Order{}, fmt.Errorf("create order %s: %w", order.ID, err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"amount_minor": order.AmountMinor,
		"items":        len(order.Items),
	}).Info("order placed")
	s.emit(order, domain.EventOrderPlaced, domain.TimelineOrderPlaced, "", "")
	return order, nil
}

// Get возвращает заявку.
func (s *Service) Get(id string) (domain.Order, error) {
	return s.orders.Get(id)
}

// List возвращает заявки, новые первыми.
func (s *Service) List(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	if status != "" {
		if _, err := domain.ParseOrderStatus(string(status)); err != nil {
			return nil, err
		}
	}
	return s.orders.List(status, limit)
}

// Timeline возвращает историю заявки.
func (s *Service) Timeline(id string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(id); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(id)
}

// ChangeStatus переводит заявку в статус to.
// При конфликте версий заявка перечитывается и переход повторяется.
func (s *Service) ChangeStatus(id string, to domain.OrderStatus, reason string) (domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(to)); err != nil {
		return domain.Order{}, err
	}
	order, err := s.orders.Get(id)
	if err != nil {
		return domain.Order{}, err
	}

	delay := s.retry.InitialDelay
	for attempt := 1; ; attempt++ {
		if order.Status == to {
			return order, nil
		}
		if !order.Status.CanTransition(to) {
			return order, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, order.Status, to)
		}

		previous := order.Status
		next := order
		next.Status = to
		next.UpdatedAt = s.now()

		err := s.orders.Save(next)
		if err == nil {
			next.Version = order.Version + 1
			if s.metrics != nil {
				s.metrics.RecordOrderStatusChange(string(to))
			}
			s.logger.WithFields(log.Fields{
				"order_id": id,
				"from":     previous,
				"to":       to,
			}).Info("order status changed")
			s.emit(next, domain.EventOrderStatusChanged, domain.TimelineOrderStatusChanged, previous, domain.StatusNote(previous, to, reason))
			return next, nil
		}

		if !domain.IsVersionConflict(err) || attempt >= s.retry.MaxAttempts {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": id,
				"attempt":  attempt,
			}).Error("failed to persist status")
			return order, fmt.Errorf("save order %s: %w", id, err)
		}

		s.logger.WithFields(log.Fields{
			"order_id": id,
			"attempt":  attempt,
			"version":  order.Version,
		}).Warn("version conflict detected, retrying")
		s.sleep(delay)
		delay = s.retry.next(delay)

		fresh, loadErr := s.orders.Get(id)
		if loadErr != nil {
			s.logger.WithError(loadErr).WithField("order_id", id).Error("failed to reload order after conflict")
			return order, loadErr
		}
		order = fresh
	}
}

// emit кладёт событие в outbox и timeline. Ошибки только логируются:
// заявка уже сохранена.
func (s *Service) emit(order domain.Order, eventType, timelineType string, previous domain.OrderStatus, reason string) {
	fields := log.Fields{"order_id": order.ID, "event": eventType}

	if s.outbox != nil {
		msg, err := domain.NewOrderEvent(eventType, order, previous, order.UpdatedAt).OutboxMessage()
		if err == nil {
			_, err = s.outbox.Enqueue(msg)
		}
		if err != nil {
			s.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     timelineType,
			Reason:   reason,
			Occurred: order.UpdatedAt,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(fields).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}
