package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"table-order/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type envelope struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// unwrap digs the payload out of a response body. The backend answers
// {"data": ...} on most routes and sometimes nests the record one level deeper
// under a named key ({"data": {"order": ...}}, or {"order": ...} at the top).
// The first of keys present wins; otherwise the data (or the body) is returned.
func unwrap(body []byte, keys ...string) json.RawMessage {
	payload := json.RawMessage(body)
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && !isNull(env.Data) {
		payload = env.Data
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		for _, k := range keys {
			if v, ok := obj[k]; ok && !isNull(v) {
				return v
			}
		}
	}
	return payload
}

type wireID struct {
	MongoID string `json:"_id"`
	PlainID string `json:"id"`
}

func (w wireID) id() string {
	if w.MongoID != "" {
		return w.MongoID
	}
	return w.PlainID
}

// ref is a reference field that arrives either as a bare id or as the
// populated document.
type ref struct {
	ID  string
	doc json.RawMessage
}

func (r *ref) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var id wireID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	r.ID = id.id()
	r.doc = append(json.RawMessage(nil), b...)
	return nil
}

// populated decodes the embedded document into v; false when only an id was sent.
func (r ref) populated(v interface{}) bool {
	if len(r.doc) == 0 {
		return false
	}
	return json.Unmarshal(r.doc, v) == nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type wireCategory struct {
	wireID
	Name string `json:"name"`
}

func (w wireCategory) model() models.Category {
	return models.Category{ID: w.id(), Name: w.Name}
}

type wireMenuItem struct {
	wireID
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     ref             `json:"categoryId"`
	ImageURL     string          `json:"imageUrl"`
	Availability *bool           `json:"availability"`
	IsAvailable  *bool           `json:"isAvailable"`
	IsVegetarian bool            `json:"isVegetarian"`
	IsVegan      bool            `json:"isVegan"`
}

func (w wireMenuItem) model() models.MenuItem {
	it := models.MenuItem{
		ID:          w.id(),
		Name:        w.Name,
		Description: w.Description,
		Price:       w.Price,
		CategoryID:  w.Category.ID,
		ImageURL:    w.ImageURL,
		Available:   true,
		Vegetarian:  w.IsVegetarian,
		Vegan:       w.IsVegan,
	}
	var cat wireCategory
	if w.Category.populated(&cat) {
		it.CategoryName = cat.Name
	}
	switch {
	case w.Availability != nil:
		it.Available = *w.Availability
	case w.IsAvailable != nil:
		it.Available = *w.IsAvailable
	}
	return it
}

type wireTable struct {
	wireID
	Number   flexString `json:"number"`
	Slug     string     `json:"slug"`
	Capacity int        `json:"capacity"`
	Location string     `json:"location"`
	IsActive *bool      `json:"isActive"`
}

func (w wireTable) model() models.Table {
	t := models.Table{
		ID:       w.id(),
		Number:   string(w.Number),
		Slug:     w.Slug,
		Capacity: w.Capacity,
		Location: w.Location,
		Active:   true,
	}
	if w.IsActive != nil {
		t.Active = *w.IsActive
	}
	return t
}

type wireOrderItem struct {
	MenuItem ref             `json:"menuItemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Note     string          `json:"note"`
}

func (w wireOrderItem) model() models.OrderItem {
	it := models.OrderItem{
		MenuItemID: w.MenuItem.ID,
		Name:       w.Name,
		Quantity:   w.Quantity,
		Price:      w.Price,
		Note:       w.Note,
	}
	var mi struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	}
	if w.MenuItem.populated(&mi) {
		if mi.Name != "" {
			it.Name = mi.Name
		}
		if it.Price.IsZero() {
			it.Price = mi.Price
		}
	}
	if it.Quantity < 1 {
		it.Quantity = 1
	}
	return it
}

type wireOrder struct {
	wireID
	OrderNumber         flexString      `json:"orderNumber"`
	Table               ref             `json:"tableId"`
	Customer            ref             `json:"customerId"`
	Items               []wireOrderItem `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Tax                 decimal.Decimal `json:"tax"`
	Total               decimal.Decimal `json:"total"`
	Status              string          `json:"status"`
	PaymentStatus       string          `json:"paymentStatus"`
	PaymentMethod       string          `json:"paymentMethod"`
	SpecialInstructions string          `json:"specialInstructions"`
	CreatedAt           *time.Time      `json:"createdAt"`
}

func (w wireOrder) model() models.Order {
	o := models.Order{
		ID:                  w.id(),
		OrderNumber:         string(w.OrderNumber),
		TableID:             w.Table.ID,
		Subtotal:            w.Subtotal,
		Tax:                 w.Tax,
		Total:               w.Total,
		Status:              w.Status,
		PaymentStatus:       w.PaymentStatus,
		PaymentMethod:       w.PaymentMethod,
		SpecialInstructions: w.SpecialInstructions,
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPlaced
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	if w.CreatedAt != nil {
		o.CreatedAt = *w.CreatedAt
	}
	var table struct {
		Number flexString `json:"number"`
	}
	if w.Table.populated(&table) {
		o.TableNumber = string(table.Number)
	}
	var customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if w.Customer.populated(&customer) {
		o.CustomerName = customer.Name
		o.CustomerEmail = customer.Email
	}
	for _, it := range w.Items {
		o.Items = append(o.Items, it.model())
	}
	return o
}

// DecodeOrder parses one order document as the backend sends it.
func DecodeOrder(raw []byte) (models.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Order{}, fmt.Errorf("decode order: %w", err)
	}
	o := w.model()
	if err := models.Validate(o); err != nil {
		return models.Order{}, fmt.Errorf("invalid order: %w", err)
	}
	return o, nil
}

// decodeOne unmarshals a single record, converts it and validates the result.
func decodeOne[W interface{ model() M }, M any](raw json.RawMessage, what string) (M, error) {
	var w W
	if err := json.Unmarshal(raw, &w); err != nil {
		var zero M
		return zero, fmt.Errorf("decode %s: %w", what, err)
	}
	m := w.model()
	if err := models.Validate(m); err != nil {
		var zero M
		return zero, fmt.Errorf("invalid %s: %w", what, err)
	}
	return m, nil
}

// decodeMany converts a list, dropping records that fail validation.
func decodeMany[W interface{ model() M }, M any](raw json.RawMessage, what string, log *zap.Logger) ([]M, error) {
	var ws []W
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", what, err)
	}
	res := make([]M, 0, len(ws))
	for i, w := range ws {
		m := w.model()
		if err := models.Validate(m); err != nil {
			log.Warn("skipping invalid record", zap.String("kind", what), zap.Int("index", i), zap.Error(err))
			continue
		}
		res = append(res, m)
	}
	return res, nil
}

type createOrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Note       string  `json:"note"`
	Price      float64 `json:"price"`
}

type createOrderRequest struct {
	TableID             string            `json:"tableId"`
	Items               []createOrderItem `json:"items"`
	Subtotal            float64           `json:"subtotal"`
	Total               float64           `json:"total"`
	PaymentStatus       string            `json:"paymentStatus,omitempty"`
	PaymentMethod       string            `json:"paymentMethod,omitempty"`
	SpecialInstructions string            `json:"specialInstructions,omitempty"`
}

func newCreateOrderRequest(s models.OrderSnapshot) createOrderRequest {
	req := createOrderRequest{
		TableID:             s.TableID,
		Items:               make([]createOrderItem, 0, len(s.Items)),
		Subtotal:            s.Subtotal.InexactFloat64(),
		Total:               s.Total.InexactFloat64(),
		PaymentStatus:       s.PaymentStatus,
		PaymentMethod:       s.PaymentMethod,
		SpecialInstructions: s.SpecialInstructions,
	}
	for _, it := range s.Items {
		req.Items = append(req.Items, createOrderItem{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Note:       it.Note,
			Price:      it.Price.InexactFloat64(),
		})
	}
	return req
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
