package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/fomo"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
)

// CatalogInput — поля каталога из админки.
type CatalogInput struct {
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	Description   string `json:"description,omitempty"`
	Fabric        string `json:"fabric,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	Active        *bool  `json:"active,omitempty"`
}

// ProductInput — поля товара из админки.
// MOQ, если не задан, выводится из QuantityPerSet.
type ProductInput struct {
	CatalogID      string   `json:"catalog_id"`
	Name           string   `json:"name"`
	SKU            string   `json:"sku,omitempty"`
	PriceMinor     int64    `json:"price_minor"`
	QuantityPerSet string   `json:"quantity_per_set,omitempty"`
	MOQ            int32    `json:"moq,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

// Storefront — каталог с активными товарами для витрины.
type Storefront struct {
	Catalog  domain.Catalog
	Products []domain.Product
}

// DispatchSchedule — еженедельный дедлайн отгрузки по IST.
type DispatchSchedule struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// FomoView — всё, что витрина показывает рядом с каталогом.
type FomoView struct {
	CatalogID string              `json:"catalog_id"`
	Raw       fomo.CatalogFomo    `json:"raw"`
	Signals   fomo.Signals        `json:"signals"`
	FinalRun  *fomo.Countdown     `json:"final_run_countdown,omitempty"`
	Dispatch  fomo.DispatchCutoff `json:"dispatch_cutoff"`
	Countdown fomo.Countdown      `json:"dispatch_countdown"`
	Perks     fomo.PerkPool       `json:"perk_pool"`
}

// Service управляет каталогами и товарами.
type Service struct {
	catalogs domain.CatalogRepository
	products domain.ProductRepository
	fomo     *fomo.Generator
	dispatch DispatchSchedule
	metrics  *metrics.StoreMetrics
	logger   *log.Entry
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDispatchSchedule задаёт дедлайн отгрузки.
func WithDispatchSchedule(d DispatchSchedule) Option {
	return func(s *Service) { s.dispatch = d }
}

// WithClock подменяет часы сервиса.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис каталога. gen может быть nil: тогда генератор
// создаётся на часах сервиса.
func NewService(catalogs domain.CatalogRepository, products domain.ProductRepository, gen *fomo.Generator, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	s := &Service{
		catalogs: catalogs,
		products: products,
		dispatch: DispatchSchedule{Weekday: time.Saturday, Hour: 18},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if gen == nil {
		gen = fomo.NewGenerator(s.now)
	}
	s.fomo = gen
	return s
}

// CreateCatalog создаёт каталог; slug по умолчанию строится из названия.
func (s *Service) CreateCatalog(in CatalogInput) (domain.Catalog, error) {
	now := s.now()
	c := domain.Catalog{ID: uuid.NewString(), Active: true, CreatedAt: now, UpdatedAt: now}
	applyCatalog(&c, in)
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	if err := s.catalogs.Create(c); err != nil {
		return domain.Catalog{}, fmt.Errorf("create catalog %s: %w", c.Slug, err)
	}
	s.logger.WithFields(log.Fields{"catalog_id": c.ID, "slug": c.Slug}).Info("catalog created")
	return c, nil
}

// UpdateCatalog перезаписывает поля каталога.
func (s *Service) UpdateCatalog(id string, in CatalogInput) (domain.Catalog, error) {
	c, err := s.catalogs.Get(id)
	if err != nil {
		return domain.Catalog{}, err
	}
	applyCatalog(&c, in)
	c.UpdatedAt = s.now()
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	if err := s.catalogs.Update(c); err != nil {
		return domain.Catalog{}, fmt.Errorf("update catalog %s: %w", id, err)
	}
	return c, nil
}

func applyCatalog(c *domain.Catalog, in CatalogInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.Slug = strings.TrimSpace(in.Slug)
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}
	c.Description = in.Description
	c.Fabric = in.Fabric
	c.CoverImageURL = in.CoverImageURL
	if in.Active != nil {
		c.Active = *in.Active
	}
}

// DeleteCatalog удаляет каталог вместе с товарами.
func (s *Service) DeleteCatalog(id string) error {
	products, err := s.products.ListByCatalog(id, false)
	if err != nil {
		return err
	}
	if err := s.catalogs.Delete(id); err != nil {
		return err
	}
	// В postgres товары удаляет ON DELETE CASCADE, здесь дочищаем остальные хранилища.
	for _, p := range products {
		if err := s.products.Delete(p.ID); err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			return fmt.Errorf("delete product %s: %w", p.ID, err)
		}
	}
	s.logger.WithField("catalog_id", id).Info("catalog deleted")
	return nil
}

// GetCatalog возвращает каталог по id.
func (s *Service) GetCatalog(id string) (domain.Catalog, error) {
	return s.catalogs.Get(id)
}

// ListCatalogs возвращает каталоги по имени.
func (s *Service) ListCatalogs(onlyActive bool) ([]domain.Catalog, error) {
	return s.catalogs.List(onlyActive)
}

// Storefront возвращает активный каталог по slug с активными товарами.
func (s *Service) Storefront(slug string) (Storefront, error) {
	c, err := s.catalogs.GetBySlug(slug)
	if err != nil {
		return Storefront{}, err
	}
	if !c.Active {
		return Storefront{}, domain.ErrCatalogNotFound
	}
	products, err := s.products.ListByCatalog(c.ID, true)
	if err != nil {
		return Storefront{}, err
	}
	return Storefront{Catalog: c, Products: products}, nil
}

// CreateProduct добавляет товар в существующий каталог.
func (s *Service) CreateProduct(in ProductInput) (domain.Product, error) {
	now := s.now()
	p := domain.Product{ID: uuid.NewString(), Active: true, CreatedAt: now, UpdatedAt: now}
	applyProduct(&p, in)
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if _, err := s.catalogs.Get(p.CatalogID); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(p); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.WithFields(log.Fields{"product_id": p.ID, "catalog_id": p.CatalogID, "moq": p.MOQ}).Info("product created")
	return p, nil
}

// UpdateProduct перезаписывает поля товара.
func (s *Service) UpdateProduct(id string, in ProductInput) (domain.Product, error) {
	p, err := s.products.Get(id)
	if err != nil {
		return domain.Product{}, err
	}
	applyProduct(&p, in)
	p.UpdatedAt = s.now()
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if _, err := s.catalogs.Get(p.CatalogID); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Update(p); err != nil {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

func applyProduct(p *domain.Product, in ProductInput) {
	p.CatalogID = in.CatalogID
	p.Name = strings.TrimSpace(in.Name)
	p.SKU = strings.TrimSpace(in.SKU)
	p.PriceMinor = in.PriceMinor
	p.QuantityPerSet = strings.TrimSpace(in.QuantityPerSet)
	p.MOQ = in.MOQ
	if p.MOQ <= 0 {
		p.MOQ = domain.ParseQuantityPerSet(p.QuantityPerSet)
	}
	p.ImageURLs = append([]string(nil), in.ImageURLs...)
	if in.Active != nil {
		p.Active = *in.Active
	}
}

// DeleteProduct удаляет товар.
func (s *Service) DeleteProduct(id string) error {
	return s.products.Delete(id)
}

// GetProduct возвращает товар по id (для админки).
func (s *Service) GetProduct(id string) (domain.Product, error) {
	return s.products.Get(id)
}

// PublicProduct возвращает товар, только если он и его каталог активны.
func (s *Service) PublicProduct(id string) (domain.Product, error) {
	p, err := s.products.Get(id)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.Active {
		return domain.Product{}, domain.ErrProductNotFound
	}
	c, err := s.catalogs.Get(p.CatalogID)
	if err != nil || !c.Active {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// ListProducts возвращает товары каталога.
func (s *Service) ListProducts(catalogID string, onlyActive bool) ([]domain.Product, error) {
	return s.products.ListByCatalog(catalogID, onlyActive)
}

// Fomo собирает маркетинговые сигналы каталога. idOrSlug принимает и id, и slug.
func (s *Service) Fomo(idOrSlug string) (FomoView, error) {
	c, err := s.catalogs.Get(idOrSlug)
	if errors.Is(err, domain.ErrCatalogNotFound) {
		c, err = s.catalogs.GetBySlug(idOrSlug)
	}
	if err != nil {
		return FomoView{}, err
	}
	if !c.Active {
		return FomoView{}, domain.ErrCatalogNotFound
	}

	raw := s.fomo.CatalogFomo(c.ID)
	view := FomoView{
		CatalogID: c.ID,
		Raw:       raw,
		Signals:   fomo.PickSignals(raw),
		Dispatch:  s.fomo.NextWeeklyCutoff(s.dispatch.Hour, s.dispatch.Minute, s.dispatch.Weekday),
		Perks:     s.fomo.PerkPool(),
	}
	view.Countdown = s.fomo.Countdown(view.Dispatch.At)
	if raw.FinalRunDate != nil {
		left := s.fomo.Countdown(*raw.FinalRunDate)
		view.FinalRun = &left
	}
	if s.metrics != nil {
		s.metrics.RecordFomoGeneration()
	}
	return view, nil
}
