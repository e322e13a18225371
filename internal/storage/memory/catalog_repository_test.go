package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/storage/memory"
)

func TestCatalogRepository_CRUD(t *testing.T) {
	repo := memory.NewCatalogRepository()

	linen := domain.Catalog{ID: "c-1", Slug: "linen", Name: "Linen", Active: true}
	cotton := domain.Catalog{ID: "c-2", Slug: "cotton", Name: "Cotton", Active: false}
	require.NoError(t, repo.Create(linen))
	require.NoError(t, repo.Create(cotton))

	err := repo.Create(domain.Catalog{ID: "c-3", Slug: "linen", Name: "Linen II"})
	require.True(t, errors.Is(err, domain.ErrSlugTaken))

	bySlug, err := repo.GetBySlug("linen")
	require.NoError(t, err)
	require.Equal(t, "c-1", bySlug.ID)

	all, err := repo.List(false)
	require.NoError(t, err)
	require.Equal(t, []string{"c-2", "c-1"}, []string{all[0].ID, all[1].ID})

	active, err := repo.List(true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	cotton.Slug = "linen"
	require.ErrorIs(t, repo.Update(cotton), domain.ErrSlugTaken)
	cotton.Slug = "cotton-2026"
	require.NoError(t, repo.Update(cotton))

	require.NoError(t, repo.Delete("c-2"))
	require.ErrorIs(t, repo.Delete("c-2"), domain.ErrCatalogNotFound)
	_, err = repo.Get("c-2")
	require.ErrorIs(t, err, domain.ErrCatalogNotFound)
}

func TestProductRepository_CRUD(t *testing.T) {
	repo := memory.NewProductRepository()
	base := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

	first := domain.Product{ID: "p-1", CatalogID: "c-1", Name: "Rayon", MOQ: 4, Active: true, CreatedAt: base, ImageURLs: []string{"a.jpg"}}
	second := domain.Product{ID: "p-2", CatalogID: "c-1", Name: "Silk", MOQ: 2, Active: false, CreatedAt: base.Add(time.Minute)}
	other := domain.Product{ID: "p-3", CatalogID: "c-2", Name: "Denim", MOQ: 10, Active: true, CreatedAt: base}
	for _, p := range []domain.Product{first, second, other} {
		require.NoError(t, repo.Create(p))
	}
	require.ErrorIs(t, repo.Create(first), domain.ErrAlreadyExists)

	list, err := repo.ListByCatalog("c-1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "p-1", list[0].ID)

	active, err := repo.ListByCatalog("c-1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	stored, err := repo.Get("p-1")
	require.NoError(t, err)
	stored.ImageURLs[0] = "mutated.jpg"
	again, _ := repo.Get("p-1")
	require.Equal(t, "a.jpg", again.ImageURLs[0])

	second.PriceMinor = 12000
	require.NoError(t, repo.Update(second))
	require.ErrorIs(t, repo.Update(domain.Product{ID: "missing"}), domain.ErrProductNotFound)

	require.NoError(t, repo.Delete("p-3"))
	_, err = repo.Get("p-3")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUserRepository_CaseInsensitiveEmail(t *testing.T) {
	repo := memory.NewUserRepository()
	require.NoError(t, repo.Create(domain.User{ID: "u-1", Email: "Owner@Shop.in", Role: domain.RoleAdmin}))
	require.ErrorIs(t, repo.Create(domain.User{ID: "u-2", Email: "owner@shop.in"}), domain.ErrUserExists)

	user, err := repo.GetByEmail("OWNER@shop.in")
	require.NoError(t, err)
	require.Equal(t, "u-1", user.ID)

	_, err = repo.GetByEmail("nobody@shop.in")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
