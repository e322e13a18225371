package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// catalogRepositoryInMemory хранит каталоги в памяти.
type catalogRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Catalog
}

// NewCatalogRepository возвращает in-memory репозиторий каталогов.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{items: make(map[string]domain.Catalog)}
}

func (r *catalogRepositoryInMemory) Create(catalog domain.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTakenLocked(catalog.Slug, catalog.ID) {
		return domain.ErrSlugTaken
	}
	r.items[catalog.ID] = catalog
	return nil
}

func (r *catalogRepositoryInMemory) Get(id string) (domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog, ok := r.items[id]
	if !ok {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	return catalog, nil
}

func (r *catalogRepositoryInMemory) GetBySlug(slug string) (domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, catalog := range r.items {
		if catalog.Slug == slug {
			return catalog, nil
		}
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}

func (r *catalogRepositoryInMemory) List(onlyActive bool) ([]domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Catalog, 0, len(r.items))
	for _, catalog := range r.items {
		if onlyActive && !catalog.Active {
			continue
		}
		result = append(result, catalog)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *catalogRepositoryInMemory) Update(catalog domain.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[catalog.ID]; !ok {
		return domain.ErrCatalogNotFound
	}
	if r.slugTakenLocked(catalog.Slug, catalog.ID) {
		return domain.ErrSlugTaken
	}
	r.items[catalog.ID] = catalog
	return nil
}

func (r *catalogRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCatalogNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *catalogRepositoryInMemory) slugTakenLocked(slug, exceptID string) bool {
	for id, existing := range r.items {
		if id != exceptID && existing.Slug == slug {
			return true
		}
	}
	return false
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
