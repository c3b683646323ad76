package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"table-order/models"
)

// TableBySlug resolves the slug printed in a table's QR code.
func (c *Client) TableBySlug(ctx context.Context, slug string) (models.Table, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/tables/by-slug/"+url.PathEscape(slug), nil)
	if err != nil {
		return models.Table{}, err
	}
	return decodeOne[wireTable, models.Table](unwrap(body, "table"), "table")
}

func (c *Client) Tables(ctx context.Context) ([]models.Table, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/tables", nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[wireTable, models.Table](unwrap(body, "tables"), "table", c.log)
}

func (c *Client) CreateTable(ctx context.Context, in models.TableInput) (models.Table, error) {
	if err := models.Validate(in); err != nil {
		return models.Table{}, err
	}
	body, err := c.do(ctx, http.MethodPost, "/api/tables", in)
	if err != nil {
		return models.Table{}, err
	}
	return decodeOne[wireTable, models.Table](unwrap(body, "table"), "table")
}

func (c *Client) UpdateTable(ctx context.Context, id string, in models.TableInput) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPut, "/api/tables/"+url.PathEscape(id), in)
	return err
}

// ToggleTable flips a table between active and inactive.
func (c *Client) ToggleTable(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/tables/"+url.PathEscape(id)+"/toggle-status", nil)
	return err
}

func (c *Client) DeleteTable(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/tables/"+url.PathEscape(id), nil)
	return err
}

// TableQR returns the PNG bytes of a table's QR code.
func (c *Client) TableQR(ctx context.Context, id string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/tables/"+url.PathEscape(id)+"/qr", nil)
	if err != nil {
		return nil, err
	}
	var dataURL string
	if err := json.Unmarshal(unwrap(body, "qrCode"), &dataURL); err != nil {
		return nil, fmt.Errorf("decode qr code: %w", err)
	}
	return decodeDataURL(dataURL)
}

func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, errors.New("qr code is not a data URL")
	}
	i := strings.Index(s, ",")
	if i < 0 || !strings.Contains(s[:i], ";base64") {
		return nil, errors.New("qr code is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(s[i+1:])
}
