package cart

import "table-order/models"

// Payment carries the optional payment fields of a submission. A nil Payment
// means pay at the counter.
type Payment struct {
	Status       string
	Method       string
	Instructions string
}

// Snapshot copies st into an order submission. Prices come from the menu item
// copies held by the lines.
func Snapshot(st State, pay *Payment) models.OrderSnapshot {
	snap := models.OrderSnapshot{
		Items: make([]models.SnapshotItem, 0, len(st.Lines)),
	}
	if st.Table != nil {
		snap.TableID = st.Table.TableID
	}
	for _, l := range st.Lines {
		snap.Items = append(snap.Items, models.SnapshotItem{
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
			Note:       l.Note,
			Price:      l.MenuItem.Price,
		})
	}
	snap.Subtotal = st.Total()
	snap.Total = snap.Subtotal
	if pay != nil {
		snap.PaymentStatus = pay.Status
		snap.PaymentMethod = pay.Method
		snap.SpecialInstructions = pay.Instructions
	}
	return snap
}

// Snapshot captures the current contents for submission.
func (s *Store) Snapshot(pay *Payment) models.OrderSnapshot {
	return Snapshot(s.State(), pay)
}
