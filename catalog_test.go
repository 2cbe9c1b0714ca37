package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeCatalogPayload(t *testing.T) {
	article := `{"sku":"AD5-001","name":"Sneaker","simples":[{"sku":"AD5-001-46","size":"46","stockStatus":"AVAILABLE"}]}`

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[` + article + `]`, 1},
		{"configs wrapper", `{"configs":[` + article + `]}`, 1},
		{"articles wrapper", `{"articles":[` + article + `]}`, 1},
		{"empty bare array", `[]`, 0},
		{"empty configs", `{"configs":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, err := normalizeCatalogPayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(articles) != tt.want {
				t.Errorf("got %d articles, want %d", len(articles), tt.want)
			}
		})
	}
}

func TestNormalizeCatalogPayloadUnknownShape(t *testing.T) {
	for _, body := range []string{
		`{"items":[{"sku":"x"}]}`,
		`{"total":0}`,
		`"just a string"`,
	} {
		_, err := normalizeCatalogPayload([]byte(body))
		if !errors.Is(err, ErrUnknownCatalogShape) {
			t.Errorf("body %s: err = %v, want ErrUnknownCatalogShape", body, err)
		}
	}
}

func TestAPIClientSearch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("brand_codes")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"configs":[
			{"sku":"C1","name":"Shoe One","simples":[
				{"sku":"C1-46","size":"46","stockStatus":"AVAILABLE"},
				{"sku":"C1-47","size":"47","stockStatus":"SOLD_OUT"}
			]}
		]}`))
	}))
	defer srv.Close()

	client, err := NewAPIClient(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	client.baseURL = srv.URL

	products, err := client.Search(context.Background(), "ZL123", QuerySpec{BrandCodes: []string{"AD5"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotPath != "/api/phoenix/catalog/events/ZL123/articles" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "AD5" {
		t.Errorf("brand_codes = %q, want AD5", gotQuery)
	}

	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	p := products[0]
	if p.ConfigSKU != "C1" || p.Name != "Shoe One" {
		t.Errorf("product = %+v", p)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(p.Variants))
	}
	if p.Variants[0].Availability != Available {
		t.Errorf("variant 0 availability = %q", p.Variants[0].Availability)
	}
	if p.Variants[1].Availability != VariantSoldOut {
		t.Errorf("variant 1 availability = %q", p.Variants[1].Availability)
	}
}

func TestAPIClientSearchEmptyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewAPIClient(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	client.baseURL = srv.URL

	products, err := client.Search(context.Background(), "ZL123", QuerySpec{})
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("got %d products, want 0", len(products))
	}
}

func TestAPIClientSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewAPIClient(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	client.baseURL = srv.URL

	if _, err := client.Search(context.Background(), "ZL123", QuerySpec{}); err == nil {
		t.Error("expected error on HTTP 403")
	}
}

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		input string
		want  Availability
	}{
		{"AVAILABLE", Available},
		{"SOLD_OUT", VariantSoldOut},
		{"RESERVED", VariantSoldOut},
		{"", AvailabilityUnknown},
		{"WEIRD", AvailabilityUnknown},
	}
	for _, tt := range tests {
		if got := parseAvailability(tt.input); got != tt.want {
			t.Errorf("parseAvailability(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
