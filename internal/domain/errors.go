package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerRequired = errors.New("customer name is required")
	// Ошибка отсутствующего телефона клиента.
	ErrPhoneRequired = errors.New("phone is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одного товара в заявке.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заявки.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заявки и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// ErrBelowMOQ — количество позиции меньше минимального объёма заказа.
	ErrBelowMOQ = errors.New("item quantity is below minimum order quantity")
	// ErrCartEmpty — попытка оформить пустую корзину.
	ErrCartEmpty = errors.New("cart is empty")

	ErrCatalogNameRequired = errors.New("catalog name is required")
	ErrSlugInvalid         = errors.New("slug must contain only lowercase letters, digits and dashes")
	ErrSlugTaken           = errors.New("slug already taken")
	ErrProductNameRequired = errors.New("product name is required")
	ErrCatalogIDRequired   = errors.New("catalog_id is required")
	ErrMOQInvalid          = errors.New("moq must be at least 1")

	// ErrCatalogNotFound возвращается, если каталог не найден в репозитории.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заявка не найдена в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrAlreadyExists — запись с таким ID уже есть.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrUnknownOrderStatus — статус не входит в жизненный цикл заявки.
	ErrUnknownOrderStatus = errors.New("unknown order status")
	// ErrInvalidStatusTransition — переход статуса запрещён.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// ErrUserNotFound — пользователь с таким email не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists — email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound объединяет все ошибки "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCatalogNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation объединяет ошибки входных данных.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrCustomerRequired, ErrPhoneRequired, ErrCurrencyRequired, ErrItemsRequired,
		ErrAmountNegative, ErrItemQtyInvalid, ErrItemPriceInvalid, ErrAmountMismatch,
		ErrBelowMOQ, ErrCartEmpty, ErrCatalogNameRequired, ErrSlugInvalid,
		ErrProductNameRequired, ErrCatalogIDRequired, ErrMOQInvalid, ErrUnknownOrderStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
