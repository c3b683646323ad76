package api

import (
	"context"
	"net/http"
	"net/url"

	"table-order/models"

	"github.com/go-resty/resty/v2"
)

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/menu/categories", nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[wireCategory, models.Category](unwrap(body, "categories"), "category", c.log)
}

// MenuItems lists the menu. With availableOnly the backend filters out items
// the kitchen has switched off.
func (c *Client) MenuItems(ctx context.Context, availableOnly bool) ([]models.MenuItem, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/menu/items", nil, func(r *resty.Request) {
		if availableOnly {
			r.SetQueryParam("availability", "true")
		}
	})
	if err != nil {
		return nil, err
	}
	return decodeMany[wireMenuItem, models.MenuItem](unwrap(body, "items"), "menu item", c.log)
}

func (c *Client) MenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/menu/items/"+url.PathEscape(id), nil)
	if err != nil {
		return models.MenuItem{}, err
	}
	return decodeOne[wireMenuItem, models.MenuItem](unwrap(body, "item"), "menu item")
}

// CreateMenuItem uploads the admin form as multipart, image included when set.
func (c *Client) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	return c.sendMenuItem(ctx, http.MethodPost, "/api/menu/items", in)
}

func (c *Client) UpdateMenuItem(ctx context.Context, id string, in models.MenuItemInput) (models.MenuItem, error) {
	return c.sendMenuItem(ctx, http.MethodPut, "/api/menu/items/"+url.PathEscape(id), in)
}

func (c *Client) sendMenuItem(ctx context.Context, method, path string, in models.MenuItemInput) (models.MenuItem, error) {
	if err := models.Validate(in); err != nil {
		return models.MenuItem{}, err
	}
	body, err := c.do(ctx, method, path, nil, func(r *resty.Request) {
		r.SetMultipartFormData(map[string]string{
			"name":         in.Name,
			"description":  in.Description,
			"price":        in.Price.String(),
			"categoryId":   in.CategoryID,
			"availability": formatBool(in.Available),
		})
		if in.Image != nil {
			name := in.ImageName
			if name == "" {
				name = "image.jpg"
			}
			r.SetFileReader("image", name, in.Image)
		}
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	return decodeOne[wireMenuItem, models.MenuItem](unwrap(body, "item"), "menu item")
}

func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/menu/items/"+url.PathEscape(id), nil)
	return err
}
