package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
	catalogsvc "github.com/HyperSlump/shop-sub000/internal/services/catalog"
)

type digitalSourceStub struct{}

func (digitalSourceStub) ListDigital(context.Context) ([]model.Product, error) {
	return []model.Product{{
		ID: "price_1", Name: "Drum Pack", Amount: decimal.RequireFromString("10"), Currency: "usd",
		Metadata: map[string]string{model.MetaType: "DIGITAL"},
	}}, nil
}

type brokenPhysicalStub struct{}

func (brokenPhysicalStub) ListStoreProducts(context.Context) ([]printful.StoreProduct, error) {
	return nil, errors.New("partner unreachable")
}

func (brokenPhysicalStub) GetProduct(context.Context, int64) (model.Product, error) {
	return model.Product{}, errors.New("partner unreachable")
}

func TestProductsDegradesWhenOneSourceFails(t *testing.T) {
	svc := catalogsvc.NewService(catalogsvc.Dependencies{
		Digital:  digitalSourceStub{},
		Physical: brokenPhysicalStub{},
	}, catalogsvc.Config{})
	h := NewProductsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	var payload struct {
		Products []model.Product `json:"products"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Products) != 1 || payload.Products[0].ID != "price_1" {
		t.Fatalf("unexpected products: %+v", payload.Products)
	}
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler().Handle(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "{\"ok\":true}\n" {
		t.Fatalf("unexpected health response: %d %q", rr.Code, rr.Body.String())
	}
}
