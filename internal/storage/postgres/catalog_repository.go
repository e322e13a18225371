package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const catalogColumns = `id, slug, name, description, fabric, cover_image_url, active, created_at, updated_at`

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию CatalogRepository.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) Create(catalog domain.Catalog) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO catalogs (`+catalogColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		catalog.ID, catalog.Slug, catalog.Name, catalog.Description, catalog.Fabric,
		catalog.CoverImageURL, catalog.Active, catalog.CreatedAt, catalog.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert catalog: %w", err)
	}
	return nil
}

func (r *catalogRepository) Get(id string) (domain.Catalog, error) {
	return r.getBy("id", id)
}

func (r *catalogRepository) GetBySlug(slug string) (domain.Catalog, error) {
	return r.getBy("slug", slug)
}

func (r *catalogRepository) getBy(column, value string) (domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	catalog, err := scanCatalog(r.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalogs WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Catalog{}, domain.ErrCatalogNotFound
		}
		return domain.Catalog{}, fmt.Errorf("select catalog by %s: %w", column, err)
	}
	return catalog, nil
}

func (r *catalogRepository) List(onlyActive bool) ([]domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `SELECT ` + catalogColumns + ` FROM catalogs`
	if onlyActive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Catalog, 0)
	for rows.Next() {
		catalog, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		result = append(result, catalog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return result, nil
}

func (r *catalogRepository) Update(catalog domain.Catalog) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE catalogs
		SET slug = $2,
		    name = $3,
		    description = $4,
		    fabric = $5,
		    cover_image_url = $6,
		    active = $7,
		    updated_at = $8
		WHERE id = $1
	`,
		catalog.ID, catalog.Slug, catalog.Name, catalog.Description, catalog.Fabric,
		catalog.CoverImageURL, catalog.Active, catalog.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("update catalog: %w", err)
	}
	return expectAffected(res, domain.ErrCatalogNotFound)
}

func (r *catalogRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM catalogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}
	return expectAffected(res, domain.ErrCatalogNotFound)
}

func scanCatalog(row rowScanner) (domain.Catalog, error) {
	var c domain.Catalog
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Description, &c.Fabric,
		&c.CoverImageURL, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// expectAffected превращает "0 строк" в notFound.
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
