package domain

import "time"

// CatalogRepository описывает хранилище каталогов.
type CatalogRepository interface {
	// Create сохраняет каталог; ErrSlugTaken, если slug занят.
	Create(catalog Catalog) error
	Get(id string) (Catalog, error)
	GetBySlug(slug string) (Catalog, error)
	// List возвращает каталоги по имени; onlyActive скрывает выключенные.
	List(onlyActive bool) ([]Catalog, error)
	Update(catalog Catalog) error
	Delete(id string) error
}

// ProductRepository описывает хранилище товаров.
type ProductRepository interface {
	Create(product Product) error
	Get(id string) (Product, error)
	// ListByCatalog возвращает товары каталога в порядке создания.
	ListByCatalog(catalogID string, onlyActive bool) ([]Product, error)
	Update(product Product) error
	Delete(id string) error
}

// OrderRepository описывает требования к хранилищу заявок.
type OrderRepository interface {
	// Create сохраняет новую заявку. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заявку по идентификатору или ErrOrderNotFound, если её нет.
	Get(id string) (Order, error)
	// List возвращает заявки (новые первыми), опционально фильтруя по статусу.
	List(status OrderStatus, limit int) ([]Order, error)
	// Save применяет обновления к заявке с учётом optimistic locking.
	Save(order Order) error
}

// UserRepository описывает хранилище сотрудников.
type UserRepository interface {
	Create(user User) error
	GetByEmail(email string) (User, error)
}

// OutboxRepository — очередь событий заявок для фоновой отправки.
type OutboxRepository interface {
	// Enqueue присваивает ID, если он пуст.
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	// PullPending возвращает до limit ожидающих событий, старые первыми.
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

type TimelineRepository interface {
	Append(event TimelineEvent) error
	// List возвращает историю заявки по времени.
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит ответы на повторяемые запросы оформления.
type IdempotencyRepository interface {
	// CreateProcessing занимает ключ. Если ключ занят, возвращает существующую
	// запись и ErrIdempotencyKeyAlreadyExists или ErrIdempotencyHashMismatch.
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	// DeleteProcessing освобождает ключ, пока запрос по нему не завершён.
	// Завершённые записи не трогает.
	DeleteProcessing(key string) error
	// DeleteExpired удаляет до limit записей с TTLAt <= before.
	DeleteExpired(before time.Time, limit int) (int, error)
}
