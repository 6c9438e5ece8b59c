package handlers

import (
	"net/http"

	catalogsvc "github.com/HyperSlump/shop-sub000/internal/services/catalog"
	"github.com/HyperSlump/shop-sub000/internal/transport/http/dto"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

type ProductsHandler struct {
	catalog *catalogsvc.Service
}

func NewProductsHandler(catalog *catalogsvc.Service) *ProductsHandler {
	return &ProductsHandler{catalog: catalog}
}

func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeInternal(w, "CATALOG_SERVICE_UNAVAILABLE", "catalog service is unavailable")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProductsResponse{Products: h.catalog.ListProducts(r.Context())})
}
