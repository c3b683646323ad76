package models

import (
	"io"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string `validate:"required"`
	Name string `validate:"required"`
}

// MenuItem is the menu record as the restaurant API serves it. Carts keep a copy
// of it taken when the item was added.
type MenuItem struct {
	ID           string          `validate:"required"`
	Name         string          `validate:"required"`
	Description  string
	Price        decimal.Decimal `validate:"gte=0"`
	CategoryID   string
	CategoryName string
	ImageURL     string
	Available    bool
	Vegetarian   bool
	Vegan        bool
}

// MenuItemInput is the admin form for creating or editing a menu item.
type MenuItemInput struct {
	Name        string          `validate:"required"`
	Description string
	Price       decimal.Decimal `validate:"gte=0"`
	CategoryID  string          `validate:"required"`
	Available   bool
	Image       io.Reader
	ImageName   string
}

// FilterByCategory returns the items of one category; an empty id means all items.
func FilterByCategory(items []MenuItem, categoryID string) []MenuItem {
	if categoryID == "" {
		return items
	}
	var res []MenuItem
	for _, it := range items {
		if it.CategoryID == categoryID {
			res = append(res, it)
		}
	}
	return res
}

// FindMenuItem looks an item up by id.
func FindMenuItem(items []MenuItem, id string) (MenuItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}
