// Package cart holds the client-side cart: the lines a diner has picked and the
// table the cart is scoped to.
package cart

import (
	"context"
	"sync"

	"table-order/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Line is one distinct menu item in the cart.
type Line struct {
	MenuItemID string
	MenuItem   models.MenuItem
	Quantity   int
	Note       string
}

// Subtotal is price times quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.MenuItem.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TableAssociation pairs the cart with a physical dining table.
type TableAssociation struct {
	TableNumber string `json:"tableNumber"`
	TableID     string `json:"tableId"`
}

// State is a copy of the cart contents. Mutating it does not affect the store.
type State struct {
	Lines []Line
	Table *TableAssociation
}

func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s State) Count() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

func (s State) Empty() bool {
	return len(s.Lines) == 0
}

type subscriber struct {
	id int
	fn func(State)
}

// Store owns one cart. All mutations are serialised; subscribers are called
// after each effective change with a copy of the new state.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	table   *TableAssociation
	persist *Persistence
	subs    []subscriber
	nextSub int
	log     *zap.Logger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an empty cart. When p is non-nil the table association is
// restored from it and every table change is written through to it.
func New(ctx context.Context, p *Persistence, opts ...Option) *Store {
	s := &Store{persist: p, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if p != nil {
		if t, ok := p.Load(ctx); ok {
			s.table = &t
		}
	}
	return s
}

// AddItem adds quantity units of item. An existing line for the same item is
// incremented instead of duplicated. Quantities below 1 are ignored.
func (s *Store) AddItem(item models.MenuItem, quantity int) {
	if quantity < 1 {
		return
	}
	s.update(func() bool {
		if i := s.indexLocked(item.ID); i >= 0 {
			s.lines[i].Quantity += quantity
			return true
		}
		s.lines = append(s.lines, Line{
			MenuItemID: item.ID,
			MenuItem:   item,
			Quantity:   quantity,
		})
		return true
	})
}

// RemoveItem deletes the line for menuItemID; it is a no-op when absent.
func (s *Store) RemoveItem(menuItemID string) {
	s.update(func() bool {
		i := s.indexLocked(menuItemID)
		if i < 0 {
			return false
		}
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
		return true
	})
}

// SetQuantity stores quantity as given. Callers clamp; see Increment and Decrement.
func (s *Store) SetQuantity(menuItemID string, quantity int) {
	s.update(func() bool {
		i := s.indexLocked(menuItemID)
		if i < 0 || s.lines[i].Quantity == quantity {
			return false
		}
		s.lines[i].Quantity = quantity
		return true
	})
}

// Increment raises a line's quantity by one.
func (s *Store) Increment(menuItemID string) {
	s.step(menuItemID, 1)
}

// Decrement lowers a line's quantity by one, never below 1.
func (s *Store) Decrement(menuItemID string) {
	s.step(menuItemID, -1)
}

func (s *Store) step(menuItemID string, delta int) {
	s.update(func() bool {
		i := s.indexLocked(menuItemID)
		if i < 0 {
			return false
		}
		q := s.lines[i].Quantity + delta
		if q < 1 {
			q = 1
		}
		if q == s.lines[i].Quantity {
			return false
		}
		s.lines[i].Quantity = q
		return true
	})
}

// SetNote replaces a line's note; it is a no-op when the line is absent.
func (s *Store) SetNote(menuItemID, note string) {
	s.update(func() bool {
		i := s.indexLocked(menuItemID)
		if i < 0 || s.lines[i].Note == note {
			return false
		}
		s.lines[i].Note = note
		return true
	})
}

// SetTable scopes the cart to a table and persists the association.
func (s *Store) SetTable(ctx context.Context, tableNumber, tableID string) {
	t := TableAssociation{TableNumber: tableNumber, TableID: tableID}
	s.update(func() bool {
		s.table = &t
		if s.persist != nil {
			s.persist.Save(ctx, t)
		}
		return true
	})
}

// ClearTable drops the table association and its persisted record. Lines stay.
func (s *Store) ClearTable(ctx context.Context) {
	s.update(func() bool {
		had := s.table != nil
		s.table = nil
		if s.persist != nil {
			s.persist.Clear(ctx)
		}
		return had
	})
}

// ClearItems empties the cart. The table association is kept.
func (s *Store) ClearItems() {
	s.update(func() bool {
		if len(s.lines) == 0 {
			return false
		}
		s.lines = nil
		return true
	})
}

// Table returns the current table association.
func (s *Store) Table() (TableAssociation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return TableAssociation{}, false
	}
	return *s.table, true
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	return s.State().Lines
}

// Line returns the line for menuItemID.
func (s *Store) Line(menuItemID string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(menuItemID)
	if i < 0 {
		return Line{}, false
	}
	return s.lines[i], true
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Total is recomputed from the current lines on every call.
func (s *Store) Total() decimal.Decimal {
	return s.State().Total()
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	return s.State().Count()
}

// Subscribe registers fn to be called after every change. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) update(mutate func() bool) {
	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return
	}
	st := s.stateLocked()
	subs := make([]func(State), len(s.subs))
	for i, sub := range s.subs {
		subs[i] = sub.fn
	}
	s.mu.Unlock()

	s.log.Debug("cart changed",
		zap.Int("lines", len(st.Lines)),
		zap.Int("count", st.Count()),
		zap.String("total", st.Total().StringFixed(2)),
	)
	for _, fn := range subs {
		fn(st)
	}
}

func (s *Store) indexLocked(menuItemID string) int {
	for i, l := range s.lines {
		if l.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

func (s *Store) stateLocked() State {
	st := State{}
	if len(s.lines) > 0 {
		st.Lines = make([]Line, len(s.lines))
		copy(st.Lines, s.lines)
	}
	if s.table != nil {
		t := *s.table
		st.Table = &t
	}
	return st
}
