package printful

import (
	"context"
	"net/http"
	"net/url"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

type Order struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

type orderRequest struct {
	ExternalID string          `json:"external_id"`
	Recipient  model.Address   `json:"recipient"`
	Items      []orderLineItem `json:"items"`
}

type orderLineItem struct {
	SyncVariantID int64 `json:"sync_variant_id,omitempty"`
	VariantID     int64 `json:"variant_id,omitempty"`
	Quantity      int   `json:"quantity"`
}

// FindOrder looks an order up by our external id. A missing order is not an error.
func (c *Client) FindOrder(ctx context.Context, externalID string) (Order, bool, error) {
	var order Order
	err := c.DoJSON(ctx, "get order", http.MethodGet, "/orders/@"+url.PathEscape(externalID), nil, &order)
	if err != nil {
		if IsNotFound(err) {
			return Order{}, false, nil
		}
		return Order{}, false, err
	}
	return order, true, nil
}

// CreateDraftOrder submits the order without confirming it for production.
func (c *Client) CreateDraftOrder(ctx context.Context, order model.FulfillmentOrder) (Order, error) {
	req := orderRequest{
		ExternalID: order.ExternalID,
		Recipient:  order.Recipient,
		Items:      make([]orderLineItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		line := orderLineItem{Quantity: item.Quantity}
		if item.SyncVariantID > 0 {
			line.SyncVariantID = item.SyncVariantID
		} else {
			line.VariantID = item.VariantID
		}
		req.Items = append(req.Items, line)
	}

	var created Order
	if err := c.DoJSON(ctx, "create draft order", http.MethodPost, "/orders?confirm=false", req, &created); err != nil {
		return Order{}, err
	}
	return created, nil
}
