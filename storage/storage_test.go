package storage

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

func TestDecodeBusinessEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"b1","RowKey":"b1","Name":"La Esquina","Banner":"/b.png","Rating":"4.5"}`)
	b, err := decodeBusinessEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ID != "b1" || b.Name != "La Esquina" || b.Banner != "/b.png" || b.Rating != "4.5" {
		t.Fatalf("unexpected business: %+v", b)
	}
}

func TestDecodeProductEntityKeepsNulls(t *testing.T) {
	data := []byte(`{"PartitionKey":"b1","RowKey":"p1","Name":"Flan","Description":null,"Price":4.5,"IsAvailable":true}`)
	p, err := decodeProductEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "p1" || p.BusinessID != "b1" || p.Name != "Flan" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.Description != nil || p.Image != nil {
		t.Fatalf("expected nil description and image: %+v", p)
	}
	if p.Price == nil || *p.Price != 4.5 || !p.Available() {
		t.Fatalf("unexpected price or availability: %+v", p)
	}
}

func TestProductsFilterEscapesQuotes(t *testing.T) {
	got := productsFilter("o'brien")
	want := "PartitionKey eq 'o''brien' and IsAvailable eq true"
	if got != want {
		t.Fatalf("productsFilter() = %q, want %q", got, want)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&azcore.ResponseError{StatusCode: http.StatusNotFound}) {
		t.Fatal("expected 404 to be not found")
	}
	if isNotFound(&azcore.ResponseError{StatusCode: http.StatusInternalServerError}) {
		t.Fatal("500 is not a not-found error")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatal("plain error is not a not-found error")
	}
}
