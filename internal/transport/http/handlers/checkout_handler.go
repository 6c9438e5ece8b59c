package handlers

import (
	"net/http"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	checkoutsvc "github.com/HyperSlump/shop-sub000/internal/services/checkout"
	"github.com/HyperSlump/shop-sub000/internal/transport/http/dto"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

type CheckoutHandler struct {
	checkout *checkoutsvc.Service
}

func NewCheckoutHandler(checkout *checkoutsvc.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.checkout == nil {
		writeInternal(w, "CHECKOUT_SERVICE_UNAVAILABLE", "checkout service is unavailable")
		return
	}

	var req dto.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if len(req.Cart) == 0 {
		writeBadRequest(w, "EMPTY_CART", "cart is empty")
		return
	}

	lines := make([]model.CartLine, 0, len(req.Cart))
	for _, item := range req.Cart {
		lines = append(lines, model.CartLine{
			ID:     item.ID,
			Name:   item.Name,
			Image:  item.Image,
			Amount: item.Amount,
		})
	}

	session, err := h.checkout.CreateSession(r.Context(), lines)
	if err != nil {
		writeServiceError(w, err, "failed to create checkout session")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CheckoutResponse{
		ClientSecret: session.ClientSecret,
		URL:          session.URL,
		SessionID:    session.ID,
	})
}
