package api

import (
	"context"
	"net/http"
	"net/url"

	"table-order/models"
)

// CreateOrder submits a cart snapshot and returns the order the backend created.
func (c *Client) CreateOrder(ctx context.Context, snap models.OrderSnapshot) (models.Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/orders", newCreateOrderRequest(snap))
	if err != nil {
		return models.Order{}, err
	}
	return decodeOne[wireOrder, models.Order](unwrap(body, "order"), "order")
}

func (c *Client) MyOrder(ctx context.Context, id string) (models.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orders/me/"+url.PathEscape(id), nil)
	if err != nil {
		return models.Order{}, err
	}
	return decodeOne[wireOrder, models.Order](unwrap(body, "order"), "order")
}

func (c *Client) CancelMyOrder(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/orders/me/"+url.PathEscape(id)+"/cancel", nil)
	return err
}

// Orders lists every order; staff only.
func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orders", nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[wireOrder, models.Order](unwrap(body, "orders"), "order", c.log)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/status",
		map[string]string{"status": status})
	return err
}

// MarkOrderPaid records a cash payment taken at the table.
func (c *Client) MarkOrderPaid(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/payment",
		map[string]string{
			"paymentStatus": models.PaymentStatusPaid,
			"paymentMethod": models.PaymentMethodCash,
		})
	return err
}
