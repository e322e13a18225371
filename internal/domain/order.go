package domain

import "time"

// OrderStatus описывает жизненный цикл заявки, оформленной через WhatsApp.
type OrderStatus string

const (
	// OrderStatusNew — заявка создана, менеджер ещё не связался с клиентом.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusContacted — менеджер связался с клиентом в WhatsApp.
	OrderStatusContacted OrderStatus = "contacted"
	// OrderStatusConfirmed — клиент подтвердил заказ и оплату.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusDispatched — товар отгружен.
	OrderStatusDispatched OrderStatus = "dispatched"
	// OrderStatusCanceled — заявка отменена.
	OrderStatusCanceled OrderStatus = "canceled"
)

// DefaultCurrency — валюта витрины.
const DefaultCurrency = "INR"

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:       {OrderStatusContacted, OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusContacted: {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed: {OrderStatusDispatched, OrderStatusCanceled},
}

// ParseOrderStatus проверяет, что строка — известный статус.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(s); status {
	case OrderStatusNew, OrderStatusContacted, OrderStatusConfirmed, OrderStatusDispatched, OrderStatusCanceled:
		return status, nil
	default:
		return "", ErrUnknownOrderStatus
	}
}

// CanTransition сообщает, допустим ли переход в статус to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsFinal — из финального статуса переходов нет.
func (s OrderStatus) IsFinal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderItem представляет одну позицию заявки.
type OrderItem struct {
	ID        string
	ProductID string
	Name      string
	// Qty — количество наборов.
	Qty int32
	// PriceMinor — цена за единицу в пайсах.
	PriceMinor int64
	MOQ        int32
	Note       string
	CreatedAt  time.Time
}

// Order агрегирует заявку и её позиции.
type Order struct {
	ID           string
	CustomerName string
	Phone        string
	City         string
	Note         string
	Status       OrderStatus
	Currency     string
	AmountMinor  int64
	Items        []OrderItem
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateInvariants проверяет базовые инварианты заявки и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Phone == "" {
		errs = append(errs, ErrPhoneRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заявки с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
