package cart

// CartItem — позиция корзины. Идентичность определяется ID товара.
type CartItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// PriceMinor — цена за единицу в минимальных денежных единицах (пайсы).
	PriceMinor int64 `json:"price_minor"`
	Quantity   int32 `json:"quantity"`
	// MOQ — минимальный объём заказа; на уровне корзины носит справочный характер.
	MOQ  int32  `json:"moq"`
	Note string `json:"note,omitempty"`
}

// State — состояние корзины одной сессии.
// Порядок Items совпадает с порядком первого добавления.
type State struct {
	Items  []CartItem `json:"items"`
	IsOpen bool       `json:"is_open"`
}

// Action — закрытое множество переходов корзины.
type Action interface {
	isAction()
}

// AddItem добавляет позицию или увеличивает количество существующей.
type AddItem struct {
	Item CartItem
}

// RemoveItem удаляет позицию по ID.
type RemoveItem struct {
	ID string
}

// UpdateQuantity перезаписывает количество; значение <= 0 удаляет позицию.
type UpdateQuantity struct {
	ID       string
	Quantity int32
}

// ClearCart очищает позиции, не трогая флаг видимости.
type ClearCart struct{}

// SetOpen управляет видимостью корзины.
type SetOpen struct {
	Open bool
}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ClearCart) isAction()      {}
func (SetOpen) isAction()        {}

// ActionName возвращает имя action для логов и метрик.
func ActionName(action Action) string {
	switch action.(type) {
	case AddItem:
		return "add_item"
	case RemoveItem:
		return "remove_item"
	case UpdateQuantity:
		return "update_quantity"
	case ClearCart:
		return "clear_cart"
	case SetOpen:
		return "set_open"
	default:
		return "unknown"
	}
}

// Reduce применяет action к state и возвращает новое состояние.
// Входное состояние не изменяется; неизвестный action возвращает state как есть.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddItem:
		return addItem(state, a.Item)
	case RemoveItem:
		return removeItem(state, a.ID)
	case UpdateQuantity:
		if a.Quantity <= 0 {
			return removeItem(state, a.ID)
		}
		return updateQuantity(state, a.ID, a.Quantity)
	case ClearCart:
		return State{Items: []CartItem{}, IsOpen: state.IsOpen}
	case SetOpen:
		return State{Items: cloneItems(state.Items), IsOpen: a.Open}
	default:
		return state
	}
}

func addItem(state State, item CartItem) State {
	items := cloneItems(state.Items)
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity += item.Quantity
			return State{Items: items, IsOpen: state.IsOpen}
		}
	}
	return State{Items: append(items, item), IsOpen: state.IsOpen}
}

func removeItem(state State, id string) State {
	items := make([]CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		if item.ID == id {
			continue
		}
		items = append(items, item)
	}
	return State{Items: items, IsOpen: state.IsOpen}
}

func updateQuantity(state State, id string, qty int32) State {
	items := cloneItems(state.Items)
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = qty
			break
		}
	}
	return State{Items: items, IsOpen: state.IsOpen}
}

func cloneItems(items []CartItem) []CartItem {
	result := make([]CartItem, len(items))
	copy(result, items)
	return result
}

// TotalItems возвращает сумму количеств всех позиций.
func TotalItems(state State) int64 {
	var total int64
	for _, item := range state.Items {
		total += int64(item.Quantity)
	}
	return total
}

// TotalPrice возвращает сумму price * quantity по всем позициям.
func TotalPrice(state State) int64 {
	var total int64
	for _, item := range state.Items {
		total += item.PriceMinor * int64(item.Quantity)
	}
	return total
}

// Find возвращает позицию по ID.
func Find(state State, id string) (CartItem, bool) {
	for _, item := range state.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}
