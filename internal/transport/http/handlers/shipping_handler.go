package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	shippingsvc "github.com/HyperSlump/shop-sub000/internal/services/shipping"
	"github.com/HyperSlump/shop-sub000/internal/transport/http/dto"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

type ShippingHandler struct {
	shipping *shippingsvc.Service
}

func NewShippingHandler(shipping *shippingsvc.Service) *ShippingHandler {
	return &ShippingHandler{shipping: shipping}
}

func (h *ShippingHandler) Rates(w http.ResponseWriter, r *http.Request) {
	if h.shipping == nil {
		writeInternal(w, "SHIPPING_SERVICE_UNAVAILABLE", "shipping service is unavailable")
		return
	}

	var req dto.ShippingRatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.Recipient == nil || len(req.Items) == 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "recipient and items are required")
		return
	}

	items := make([]shippingsvc.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, shippingsvc.Item{
			ID:       item.ID,
			Metadata: stringMetadata(item.Metadata),
		})
	}

	rates, err := h.shipping.Estimate(r.Context(), *req.Recipient, items)
	if err != nil {
		writeServiceError(w, err, "failed to estimate shipping")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ShippingRatesResponse{Rates: rates})
}

// stringMetadata flattens client metadata; variant ids arrive as numbers or strings.
func stringMetadata(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
