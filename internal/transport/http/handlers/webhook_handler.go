package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	webhooksvc "github.com/HyperSlump/shop-sub000/internal/services/webhook"
	"github.com/HyperSlump/shop-sub000/internal/transport/http/dto"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

const (
	signatureHeader     = "Stripe-Signature"
	defaultMaxBodyBytes = 1 << 20
)

type WebhookHandler struct {
	webhooks     *webhooksvc.Service
	maxBodyBytes int64
}

func NewWebhookHandler(webhooks *webhooksvc.Service, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &WebhookHandler{webhooks: webhooks, maxBodyBytes: maxBodyBytes}
}

// Handle acknowledges every verified delivery with 200. Fulfillment problems
// never change the status; a retry would not fix them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.webhooks == nil {
		writeInternal(w, "WEBHOOK_SERVICE_UNAVAILABLE", "webhook service is unavailable")
		return
	}

	// The signature covers the exact bytes, so the body is read raw.
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeBadRequest(w, "INVALID_BODY", "webhook body could not be read")
		return
	}

	if _, err := h.webhooks.Handle(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		if errors.Is(err, errs.ErrVerification) {
			writeBadRequest(w, "INVALID_SIGNATURE", "webhook signature verification failed")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process webhook")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{Received: true})
}
