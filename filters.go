package main

import (
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// QuerySpec is a translated filter set, expressed in the execution surface's
// vocabulary. Both the API client (as query parameters) and the DOM client
// (as a UI selection plan) consume the same QuerySpec.
type QuerySpec struct {
	BrandCodes    []string
	ShoeSizes     []string
	ClothingSizes []string
	CategoryIDs   []string
	Gender        string
	ColorIDs      []string

	// PriceMaxMinor is the price ceiling in the smallest currency unit;
	// zero means no ceiling.
	PriceMaxMinor int64

	Sort           string
	IncludeSoldOut bool
	PageSize       int
}

// Values renders the query as catalog request parameters. Shoe sizes are
// pipe-joined, everything else comma-joined, matching the surface's grammar.
func (q QuerySpec) Values() url.Values {
	params := url.Values{}

	if len(q.BrandCodes) > 0 {
		params.Set("brand_codes", strings.Join(q.BrandCodes, ","))
	}
	if len(q.CategoryIDs) > 0 {
		params.Set("category_ids", strings.Join(q.CategoryIDs, ","))
	}
	if q.Gender != "" {
		params.Set("gender", q.Gender)
	}
	if len(q.ShoeSizes) > 0 {
		params.Set("sizes.shoes", strings.Join(q.ShoeSizes, "|"))
	}
	if len(q.ClothingSizes) > 0 {
		params.Set("sizes.clothing", strings.Join(q.ClothingSizes, ","))
	}
	if len(q.ColorIDs) > 0 {
		params.Set("color_ids", strings.Join(q.ColorIDs, ","))
	}
	if q.PriceMaxMinor > 0 {
		params.Set("price_max", strconv.FormatInt(q.PriceMaxMinor, 10))
	}

	sort := q.Sort
	if sort == "" {
		sort = "relevance"
	}
	params.Set("sort", sort)

	if q.IncludeSoldOut {
		params.Set("no_soldout", "0")
	} else {
		params.Set("no_soldout", "1")
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 60
	}
	params.Set("size", strconv.Itoa(pageSize))
	params.Set("fields", "1")

	return params
}

// CatalogPolicy injects retailer-specific defaulting heuristics so the
// translator itself stays retailer-agnostic. Implementations must be pure.
type CatalogPolicy interface {
	// DefaultShoeBrands returns brand codes to apply when shoes are
	// requested with no brand restriction. Empty means no defaulting.
	DefaultShoeBrands() []string

	// DefaultShoeGender returns the gender to assume when shoe sizes are
	// present and no gender was chosen. Empty means no defaulting.
	DefaultShoeGender() string
}

// LoungePolicy carries the defaults observed against the live store.
type LoungePolicy struct{}

func (LoungePolicy) DefaultShoeBrands() []string {
	return []string{"AD7", "TA4", "AD1", "AD5", "ALB", "H1X", "SA5", "ME1", "PU1"}
}

func (LoungePolicy) DefaultShoeGender() string { return "MALE" }

// NopPolicy disables all defaulting.
type NopPolicy struct{}

func (NopPolicy) DefaultShoeBrands() []string { return nil }
func (NopPolicy) DefaultShoeGender() string   { return "" }

// brandCodes maps free-text brand names to the surface's brand codes.
// Unknown names pass through unchanged, since users may already enter codes.
var brandCodes = map[string]string{
	"adidas":             "AD5",
	"adidas performance": "AD5",
	"adidas originals":   "AD7",
	"adidas neo":         "AD1",
	"nike":               "NI",
	"puma":               "PU1",
	"tommy hilfiger":     "TA4",
	"calvin klein":       "CK",
	"under armour":       "UND",
	"new balance":        "NB",
	"converse":           "CN",
	"vans":               "VA",
	"reebok":             "RB",
	"alberto":            "ALB",
	"hugo":               "H1X",
	"salomon":            "SA5",
	"merrell":            "ME1",
}

// sortTokens maps user-facing sort labels to surface sort tokens.
var sortTokens = map[string]string{
	"popularne":      "relevance",
	"relevance":      "relevance",
	"najniższa cena": "price_asc",
	"najwyższa cena": "price_desc",
	"nowości":        "newest",
	"wyprzedaż":      "savings",
}

// Category identifiers of the execution surface.
const (
	categoryWomenClothing = "70097656"
	categoryMenClothing   = "24128398"
	categoryWomenShoes    = "92288919"
	categoryMenShoes      = "46319661"
	categoryMenSportShoes = "74368050"
	categorySportGeneral  = "192089653"
)

var colorIDs = map[string]string{
	"czarny":    "0",
	"biały":     "800",
	"niebieski": "500",
	"czerwony":  "600",
	"zielony":   "400",
	"żółty":     "300",
	"różowy":    "700",
	"fioletowy": "900",
}

// FilterTranslator converts a FilterSpec into a QuerySpec. Translation is
// pure and total: it never fails, absent fields are simply omitted.
type FilterTranslator struct {
	policy   CatalogPolicy
	pageSize int
	log      *slog.Logger
}

func NewFilterTranslator(policy CatalogPolicy, pageSize int, log *slog.Logger) *FilterTranslator {
	if policy == nil {
		policy = NopPolicy{}
	}
	return &FilterTranslator{policy: policy, pageSize: pageSize, log: log}
}

// Translate maps filters plus a sort label into a QuerySpec.
func (t *FilterTranslator) Translate(f FilterSpec, sortMethod string) QuerySpec {
	q := QuerySpec{
		Sort:           MapSortMethod(sortMethod),
		IncludeSoldOut: f.IncludeSoldOut,
		PageSize:       t.pageSize,
	}

	for _, b := range f.Brands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if code, ok := brandCodes[strings.ToLower(b)]; ok {
			q.BrandCodes = append(q.BrandCodes, code)
		} else {
			q.BrandCodes = append(q.BrandCodes, b)
		}
	}

	if f.Size != "" {
		sizes := splitSizes(f.Size)
		if IsShoeSize(f.Size) || f.ShoesCategory != "" {
			q.ShoeSizes = sizes
		} else {
			q.ClothingSizes = sizes
		}
	}

	category := t.primaryCategory(f)
	gender := mapGender(f.Gender)

	switch category {
	case "clothing":
		switch gender {
		case "FEMALE":
			q.CategoryIDs = append(q.CategoryIDs, categoryWomenClothing)
		case "MALE":
			q.CategoryIDs = append(q.CategoryIDs, categoryMenClothing)
		}
	case "shoes":
		switch gender {
		case "FEMALE":
			q.CategoryIDs = append(q.CategoryIDs, categoryWomenShoes)
		case "MALE":
			q.CategoryIDs = append(q.CategoryIDs, categoryMenShoes)
		default:
			q.CategoryIDs = append(q.CategoryIDs, categoryMenShoes, categoryWomenShoes)
		}
	case "equipment":
		if gender == "MALE" {
			q.CategoryIDs = append(q.CategoryIDs, categoryMenSportShoes)
		}
		q.CategoryIDs = append(q.CategoryIDs, categorySportGeneral)
	}

	q.Gender = gender
	if q.Gender == "" && len(q.ShoeSizes) > 0 {
		q.Gender = t.policy.DefaultShoeGender()
	}

	if len(q.BrandCodes) == 0 && (category == "shoes" || len(q.ShoeSizes) > 0) {
		q.BrandCodes = append(q.BrandCodes, t.policy.DefaultShoeBrands()...)
	}

	if f.Color != "" {
		if id, ok := colorIDs[strings.ToLower(strings.TrimSpace(f.Color))]; ok {
			q.ColorIDs = append(q.ColorIDs, id)
		}
	}

	if f.MaxPrice > 0 {
		q.PriceMaxMinor = int64(math.Round(f.MaxPrice * 100))
	}

	return q
}

// primaryCategory resolves the mutually exclusive subcategory fields. They
// are exclusive at the form boundary; if more than one arrives anyway, the
// first set field wins in declaration order and the rest are ignored.
func (t *FilterTranslator) primaryCategory(f FilterSpec) string {
	set := 0
	category := ""
	if f.ClothingCategory != "" {
		set++
		category = "clothing"
	}
	if f.ShoesCategory != "" {
		set++
		if category == "" {
			category = "shoes"
		}
	}
	if f.AccessoriesCategory != "" {
		set++
		if category == "" {
			category = "accessories"
		}
	}
	if f.EquipmentCategory != "" {
		set++
		if category == "" {
			category = "equipment"
		}
	}
	if set > 1 && t.log != nil {
		t.log.Warn("multiple subcategories set, keeping first",
			"kept", category)
	}
	return category
}

// MapSortMethod maps a user-facing sort label to the surface's sort token.
// Unrecognized input defaults to relevance; this never fails.
func MapSortMethod(sortMethod string) string {
	if token, ok := sortTokens[strings.ToLower(strings.TrimSpace(sortMethod))]; ok {
		return token
	}
	return "relevance"
}

// IsShoeSize classifies a size expression using the first comma-delimited
// token: a numeric value in [35, 50] is treated as shoe sizing, and the
// whole expression inherits that classification. This is a heuristic, not a
// guarantee.
func IsShoeSize(size string) bool {
	first := size
	if i := strings.Index(size, ","); i >= 0 {
		first = size[:i]
	}
	// "46 2/3" parses as 46 for classification purposes.
	first = strings.TrimSpace(first)
	if i := strings.Index(first, " "); i >= 0 {
		first = first[:i]
	}
	n, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return false
	}
	return n >= 35 && n <= 50
}

func splitSizes(expr string) []string {
	var sizes []string
	for _, s := range strings.Split(expr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func mapGender(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "":
		return ""
	case "mężczyźni", "male":
		return "MALE"
	case "kobiety", "female":
		return "FEMALE"
	case "unisex":
		return "UNISEX"
	default:
		return strings.ToUpper(strings.TrimSpace(gender))
	}
}

// SizeVariants expands one base size into the fragment forms a page may
// expose: the plain size, its half step, and third fractions ("46", "46.5",
// "46 1/3", "46 2/3"). Used by the DOM surface to match size controls.
func SizeVariants(base string) []string {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil
	}
	if strings.Contains(base, ".") || strings.Contains(base, "/") {
		return []string{base}
	}
	return []string{
		base,
		base + ".5",
		base + " 1/3",
		base + " 2/3",
	}
}
