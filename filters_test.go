package main

import (
	"reflect"
	"testing"
)

func TestMapSortMethod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"popular", "Popularne", "relevance"},
		{"lowest price", "Najniższa cena", "price_asc"},
		{"highest price", "Najwyższa cena", "price_desc"},
		{"newest", "Nowości", "newest"},
		{"sale", "Wyprzedaż", "savings"},
		{"already a token", "relevance", "relevance"},
		{"unknown falls back", "???", "relevance"},
		{"empty falls back", "", "relevance"},
		{"whitespace", "  popularne  ", "relevance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapSortMethod(tt.input); got != tt.expected {
				t.Errorf("MapSortMethod(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsShoeSize(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"46", true},
		{"35", true},
		{"50", true},
		{"34.5", false},
		{"50.5", false},
		{"46 2/3", true},
		{"42,43", true},
		{"M", false},
		{"M,L", false},
		{"XL", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsShoeSize(tt.input); got != tt.expected {
			t.Errorf("IsShoeSize(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestTranslatePriceToMinorUnits(t *testing.T) {
	tr := NewFilterTranslator(NopPolicy{}, 60, nil)

	tests := []struct {
		price float64
		want  int64
	}{
		{300, 30000},
		{19.99, 1999},
		{29.99, 2999},
		{0.01, 1},
		{0, 0},
	}

	for _, tt := range tests {
		q := tr.Translate(FilterSpec{MaxPrice: tt.price}, "")
		if q.PriceMaxMinor != tt.want {
			t.Errorf("MaxPrice %v: PriceMaxMinor = %d, want %d", tt.price, q.PriceMaxMinor, tt.want)
		}
	}
}

func TestTranslateSizeFamilies(t *testing.T) {
	tr := NewFilterTranslator(NopPolicy{}, 60, nil)

	tests := []struct {
		name         string
		filters      FilterSpec
		wantShoes    []string
		wantClothing []string
	}{
		{
			name:      "numeric shoe size",
			filters:   FilterSpec{Size: "46"},
			wantShoes: []string{"46"},
		},
		{
			name:         "letter clothing size",
			filters:      FilterSpec{Size: "M,L"},
			wantClothing: []string{"M", "L"},
		},
		{
			name:      "shoes category forces shoe sizing",
			filters:   FilterSpec{Size: "XL", ShoesCategory: "sneakers"},
			wantShoes: []string{"XL"},
		},
		{
			name:      "multiple shoe sizes",
			filters:   FilterSpec{Size: "42, 43"},
			wantShoes: []string{"42", "43"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tr.Translate(tt.filters, "")
			if !reflect.DeepEqual(q.ShoeSizes, tt.wantShoes) {
				t.Errorf("ShoeSizes = %v, want %v", q.ShoeSizes, tt.wantShoes)
			}
			if !reflect.DeepEqual(q.ClothingSizes, tt.wantClothing) {
				t.Errorf("ClothingSizes = %v, want %v", q.ClothingSizes, tt.wantClothing)
			}
			if q.ShoeSizes != nil && q.ClothingSizes != nil {
				t.Error("a size expression must never populate both families")
			}
		})
	}
}

func TestTranslateBrandMapping(t *testing.T) {
	tr := NewFilterTranslator(NopPolicy{}, 60, nil)

	q := tr.Translate(FilterSpec{Brands: []string{"Adidas", "nike", "XYZ"}}, "")
	want := []string{"AD5", "NI", "XYZ"}
	if !reflect.DeepEqual(q.BrandCodes, want) {
		t.Errorf("BrandCodes = %v, want %v", q.BrandCodes, want)
	}
}

func TestTranslateCategories(t *testing.T) {
	tr := NewFilterTranslator(NopPolicy{}, 60, nil)

	tests := []struct {
		name    string
		filters FilterSpec
		want    []string
	}{
		{
			name:    "men clothing",
			filters: FilterSpec{ClothingCategory: "tshirts", Gender: "male"},
			want:    []string{categoryMenClothing},
		},
		{
			name:    "women clothing",
			filters: FilterSpec{ClothingCategory: "dresses", Gender: "female"},
			want:    []string{categoryWomenClothing},
		},
		{
			name:    "men shoes",
			filters: FilterSpec{ShoesCategory: "sneakers", Gender: "male"},
			want:    []string{categoryMenShoes},
		},
		{
			name:    "shoes without gender covers both",
			filters: FilterSpec{ShoesCategory: "sneakers"},
			want:    []string{categoryMenShoes, categoryWomenShoes},
		},
		{
			name:    "men equipment",
			filters: FilterSpec{EquipmentCategory: "balls", Gender: "male"},
			want:    []string{categoryMenSportShoes, categorySportGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tr.Translate(tt.filters, "")
			if !reflect.DeepEqual(q.CategoryIDs, tt.want) {
				t.Errorf("CategoryIDs = %v, want %v", q.CategoryIDs, tt.want)
			}
		})
	}
}

func TestTranslateFirstSubcategoryWins(t *testing.T) {
	tr := NewFilterTranslator(NopPolicy{}, 60, nil)

	q := tr.Translate(FilterSpec{
		ClothingCategory: "tshirts",
		ShoesCategory:    "sneakers",
		Gender:           "male",
	}, "")

	want := []string{categoryMenClothing}
	if !reflect.DeepEqual(q.CategoryIDs, want) {
		t.Errorf("CategoryIDs = %v, want clothing to win: %v", q.CategoryIDs, want)
	}
}

func TestTranslateShoeDefaults(t *testing.T) {
	tr := NewFilterTranslator(LoungePolicy{}, 60, nil)

	q := tr.Translate(FilterSpec{Size: "46"}, "")

	if q.Gender != "MALE" {
		t.Errorf("Gender = %q, want MALE default for shoe sizing", q.Gender)
	}
	if len(q.BrandCodes) == 0 {
		t.Error("expected default shoe brands when none given")
	}

	// An explicit brand suppresses the default list.
	q = tr.Translate(FilterSpec{Size: "46", Brands: []string{"nike"}}, "")
	if !reflect.DeepEqual(q.BrandCodes, []string{"NI"}) {
		t.Errorf("BrandCodes = %v, want explicit brand only", q.BrandCodes)
	}
}

func TestQuerySpecValues(t *testing.T) {
	q := QuerySpec{
		BrandCodes:    []string{"AD5", "NI"},
		ShoeSizes:     []string{"46", "46.5"},
		CategoryIDs:   []string{categoryMenShoes},
		Gender:        "MALE",
		PriceMaxMinor: 30000,
		Sort:          "price_asc",
		PageSize:      60,
	}

	v := q.Values()

	checks := map[string]string{
		"brand_codes":  "AD5,NI",
		"sizes.shoes":  "46|46.5",
		"category_ids": categoryMenShoes,
		"gender":       "MALE",
		"price_max":    "30000",
		"sort":         "price_asc",
		"no_soldout":   "1",
		"size":         "60",
		"fields":       "1",
	}
	for key, want := range checks {
		if got := v.Get(key); got != want {
			t.Errorf("Values()[%q] = %q, want %q", key, got, want)
		}
	}
	if v.Get("sizes.clothing") != "" {
		t.Error("sizes.clothing must be absent when only shoe sizes are set")
	}
}

func TestQuerySpecValuesDefaults(t *testing.T) {
	v := QuerySpec{}.Values()

	if got := v.Get("sort"); got != "relevance" {
		t.Errorf("sort default = %q, want relevance", got)
	}
	if got := v.Get("no_soldout"); got != "1" {
		t.Errorf("no_soldout default = %q, want 1", got)
	}
	if got := v.Get("size"); got != "60" {
		t.Errorf("size default = %q, want 60", got)
	}
}

func TestSizeVariants(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"46", []string{"46", "46.5", "46 1/3", "46 2/3"}},
		{"46.5", []string{"46.5"}},
		{"46 2/3", []string{"46 2/3"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := SizeVariants(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SizeVariants(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
