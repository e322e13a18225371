package checkout

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
)

// OrderPlacer сохраняет заявку; реализуется orders.Service.
type OrderPlacer interface {
	Place(order domain.Order) (domain.Order, error)
}

// Result — итог оформления.
type Result struct {
	Order       domain.Order `json:"-"`
	OrderID     string       `json:"order_id"`
	Message     string       `json:"message"`
	WhatsAppURL string       `json:"whatsapp_url"`
}

// Service оформляет корзину в заявку и готовит ссылку на чат с продавцом.
type Service struct {
	placer         OrderPlacer
	whatsappNumber string
	formatter      *PriceFormatter
	metrics        *metrics.StoreMetrics
	logger         *log.Entry
}

// NewService создаёт сервис оформления. m может быть nil.
func NewService(placer OrderPlacer, whatsappNumber string, m *metrics.StoreMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Service{
		placer:         placer,
		whatsappNumber: whatsappNumber,
		formatter:      NewPriceFormatter(""),
		metrics:        m,
		logger:         logger,
	}
}

// Checkout превращает содержимое корзины в заявку. После успеха из корзины
// вычитаются оформленные позиции; добавленное во время оформления остаётся.
func (s *Service) Checkout(customer Customer, store *cart.Store) (Result, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.Name == "" {
		s.record(metrics.CheckoutInvalid, 0)
		return Result{}, domain.ErrCustomerRequired
	}
	if customer.Phone == "" {
		s.record(metrics.CheckoutInvalid, 0)
		return Result{}, domain.ErrPhoneRequired
	}

	state := store.Snapshot()
	if len(state.Items) == 0 {
		s.record(metrics.CheckoutEmpty, 0)
		return Result{}, domain.ErrCartEmpty
	}

	items := make([]domain.OrderItem, 0, len(state.Items))
	for _, item := range state.Items {
		if item.MOQ > 0 && item.Quantity < item.MOQ {
			s.record(metrics.CheckoutBelowMOQ, 0)
			return Result{}, fmt.Errorf("%w: %s needs %d, has %d", domain.ErrBelowMOQ, item.Name, item.MOQ, item.Quantity)
		}
		items = append(items, domain.OrderItem{
			ProductID:  item.ID,
			Name:       item.Name,
			Qty:        item.Quantity,
			PriceMinor: item.PriceMinor,
			MOQ:        item.MOQ,
			Note:       item.Note,
		})
	}

	order, err := s.placer.Place(domain.Order{
		CustomerName: customer.Name,
		Phone:        customer.Phone,
		City:         strings.TrimSpace(customer.City),
		Note:         strings.TrimSpace(customer.Note),
		Currency:     domain.DefaultCurrency,
		AmountMinor:  cart.TotalPrice(state),
		Items:        items,
	})
	if err != nil {
		if domain.IsValidation(err) {
			s.record(metrics.CheckoutInvalid, 0)
		} else {
			s.record(metrics.CheckoutError, 0)
			s.logger.WithError(err).Error("checkout failed")
		}
		return Result{}, err
	}

	text := BuildMessage(order.ID, customer, state, s.formatter)
	store.Deduct(state.Items)
	s.record(metrics.CheckoutPlaced, order.AmountMinor)

	return Result{
		Order:       order,
		OrderID:     order.ID,
		Message:     text,
		WhatsAppURL: WhatsAppURL(s.whatsappNumber, text),
	}, nil
}

func (s *Service) record(result string, amountMinor int64) {
	if s.metrics != nil {
		s.metrics.RecordCheckout(result, amountMinor)
	}
}
