package domain

import (
	"errors"
	"testing"
)

func TestParseQuantityPerSet(t *testing.T) {
	cases := map[string]int32{
		"6 pcs per set":   6,
		"  12 Pieces ":    12,
		"Set of 4 (M-XL)": 4,
		"":                1,
		"assorted":        1,
		"0 pcs":           1,
	}
	for in, want := range cases {
		if got := ParseQuantityPerSet(in); got != want {
			t.Errorf("ParseQuantityPerSet(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestProductValidate(t *testing.T) {
	valid := Product{Name: "Cotton cambric", CatalogID: "cat-1", PriceMinor: 45000, MOQ: 6}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid product, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(p *Product)
		want error
	}{
		{"no name", func(p *Product) { p.Name = " " }, ErrProductNameRequired},
		{"no catalog", func(p *Product) { p.CatalogID = "" }, ErrCatalogIDRequired},
		{"negative price", func(p *Product) { p.PriceMinor = -1 }, ErrItemPriceInvalid},
		{"zero moq", func(p *Product) { p.MOQ = 0 }, ErrMOQInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mut(&p)
			if err := p.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCatalogSlug(t *testing.T) {
	if got := Slugify("  Summer Linen / 2026 "); got != "summer-linen-2026" {
		t.Fatalf("unexpected slug %q", got)
	}

	c := Catalog{Name: "Linen", Slug: "Linen Slug"}
	if err := c.Validate(); !errors.Is(err, ErrSlugInvalid) {
		t.Fatalf("expected ErrSlugInvalid, got %v", err)
	}
	c.Slug = "linen"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid catalog, got %v", err)
	}
	c.Name = ""
	if err := c.Validate(); !errors.Is(err, ErrCatalogNameRequired) {
		t.Fatalf("expected ErrCatalogNameRequired, got %v", err)
	}
}
