package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"table-order/api"
	"table-order/invoice"
	"table-order/models"
	"table-order/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const adminHelp = `🔐 Admin panel
/orders_all – recent orders with status buttons
/export – all orders as an Excel sheet
/tables – list tables
/table_qr <id> – QR code for a table
/toggle_table <id> – enable or disable a table
/add_table <number> <capacity> <location>
/edit_table <id> <number> <capacity> <location>
/del_table <id>
/add_item name|price|categoryId|description
/edit_item id|name|price|categoryId|description
/item_available <id> on|off
/del_item <id>
/logout`

const recentOrdersShown = 10

// handleAdminCommand runs staff commands. It returns false for anything that is
// not an admin command so the customer flow can handle it.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message, cmd, args string) bool {
	chatID := msg.Chat.ID
	if cmd == "admin" {
		b.handleAdminLogin(ctx, msg, args)
		return true
	}
	switch cmd {
	case "orders_all", "export", "tables", "table_qr", "toggle_table", "add_table", "edit_table", "del_table",
		"add_item", "edit_item", "item_available", "del_item", "logout":
	default:
		return false
	}
	if !b.sess.isAdmin(chatID) {
		b.send(chatID, "🔒 Send /admin <password> first.")
		return true
	}

	switch cmd {
	case "orders_all":
		b.sendAllOrders(ctx, chatID)
	case "export":
		b.sendExport(ctx, chatID)
	case "tables":
		b.sendTables(ctx, chatID)
	case "table_qr":
		b.sendTableQR(ctx, chatID, args)
	case "toggle_table":
		b.adminAction(chatID, args, "/toggle_table <id>", "Table toggled.", func(id string) error {
			return b.backend.ToggleTable(ctx, id)
		})
	case "del_table":
		b.adminAction(chatID, args, "/del_table <id>", "Table deleted.", func(id string) error {
			return b.backend.DeleteTable(ctx, id)
		})
	case "del_item":
		b.adminAction(chatID, args, "/del_item <id>", "Menu item deleted.", func(id string) error {
			return b.backend.DeleteMenuItem(ctx, id)
		})
	case "add_table":
		b.handleAddTable(ctx, chatID, args)
	case "edit_table":
		b.handleEditTable(ctx, chatID, args)
	case "add_item":
		b.handleAddItem(ctx, chatID, args)
	case "edit_item":
		b.handleEditItem(ctx, chatID, args)
	case "item_available":
		b.handleItemAvailable(ctx, chatID, args)
	case "logout":
		b.sess.dropAdmin(ctx, chatID)
		b.send(chatID, "Logged out.")
	}
	return true
}

func (b *Bot) handleAdminLogin(ctx context.Context, msg *tgbotapi.Message, password string) {
	chatID := msg.Chat.ID
	if b.sess.isAdmin(chatID) {
		b.send(chatID, adminHelp)
		return
	}
	// The password should not linger in the chat history.
	if password != "" {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
			b.log.Debug("delete password message", zap.Error(err))
		}
	}
	if wait := b.sess.loginWait(ctx, chatID); wait > 0 {
		b.send(chatID, fmt.Sprintf("⏳ Too many attempts. Try again in %d s.", wait))
		return
	}
	if !services.CheckAdminPassword(b.adminHash, password) {
		b.sess.loginFailed(ctx, chatID)
		b.log.Info("admin login failed", zap.Int64("chat_id", chatID))
		b.send(chatID, "❌ Wrong password.")
		return
	}
	b.sess.loginSucceeded(ctx, chatID)
	b.sess.setAdmin(ctx, chatID)
	b.log.Info("admin logged in", zap.Int64("chat_id", chatID))
	b.send(chatID, adminHelp)
}

// adminAction runs a one-argument admin command and reports the outcome.
func (b *Bot) adminAction(chatID int64, id, usage, done string, fn func(id string) error) {
	id = strings.TrimSpace(id)
	if id == "" {
		b.send(chatID, "Usage: "+usage)
		return
	}
	if err := fn(id); err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, "✅ "+done)
}

func describeAPIError(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrNotFound):
		return "Not found."
	case errors.Is(err, api.ErrSessionExpired):
		return "The API session expired; update API_TOKEN."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func (b *Bot) sendAllOrders(ctx context.Context, chatID int64) {
	orders, err := b.backend.Orders(ctx)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	if len(orders) == 0 {
		b.send(chatID, "No orders yet.")
		return
	}
	for _, o := range latestOrders(orders, recentOrdersShown) {
		o := o
		b.upsertOrderCard(ctx, services.AudienceAdmin, chatID, &o, true)
	}
}

// findOrder looks an order up in the admin list.
func (b *Bot) findOrder(ctx context.Context, id string) (models.Order, error) {
	orders, err := b.backend.Orders(ctx)
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, api.ErrNotFound
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	orders, err := b.backend.Orders(ctx)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	var buf bytes.Buffer
	if err := invoice.WriteOrdersXLSX(&buf, orders); err != nil {
		b.log.Error("export orders", zap.Error(err))
		b.send(chatID, "❌ Export failed.")
		return
	}
	name := "orders-" + time.Now().Format("2006-01-02") + ".xlsx"
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("%d orders", len(orders))
	if _, err := b.api.Send(doc); err != nil {
		b.log.Warn("send export", zap.Error(err))
	}
}

func (b *Bot) sendTables(ctx context.Context, chatID int64) {
	tables, err := b.backend.Tables(ctx)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, tablesText(tables))
}

func (b *Bot) sendTableQR(ctx context.Context, chatID int64, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		b.send(chatID, "Usage: /table_qr <id>")
		return
	}
	png, err := b.backend.TableQR(ctx, id)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "table-" + id + ".png", Bytes: png})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Warn("send table qr", zap.Error(err))
	}
}

func (b *Bot) handleAddTable(ctx context.Context, chatID int64, args string) {
	in, err := parseAddTable(args)
	if err != nil {
		if errors.Is(err, errUsage) {
			b.send(chatID, "Usage: /add_table <number> <capacity> <location>")
			return
		}
		b.send(chatID, "❌ "+err.Error())
		return
	}
	t, err := b.backend.CreateTable(ctx, in)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Table %s created (id %s, slug %s). Use /table_qr %s for its QR code.", t.Number, t.ID, t.Slug, t.ID))
}

func (b *Bot) handleAddItem(ctx context.Context, chatID int64, args string) {
	in, err := parseAddItem(args)
	if err != nil {
		if errors.Is(err, errUsage) {
			b.send(chatID, "Usage: /add_item name|price|categoryId|description")
			return
		}
		b.send(chatID, "❌ "+err.Error())
		return
	}
	it, err := b.backend.CreateMenuItem(ctx, in)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Added %s at %s (id %s).", it.Name, services.FormatMoney(it.Price), it.ID))
}

func (b *Bot) handleEditTable(ctx context.Context, chatID int64, args string) {
	id, in, err := parseEditTable(args)
	if err != nil {
		if errors.Is(err, errUsage) {
			b.send(chatID, "Usage: /edit_table <id> <number> <capacity> <location>")
			return
		}
		b.send(chatID, "❌ "+err.Error())
		return
	}
	if err := b.backend.UpdateTable(ctx, id, in); err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Table %s updated.", in.Number))
}

// handleEditItem replaces an item's details and keeps its availability.
func (b *Bot) handleEditItem(ctx context.Context, chatID int64, args string) {
	id, in, err := parseEditItem(args)
	if err != nil {
		if errors.Is(err, errUsage) {
			b.send(chatID, "Usage: /edit_item id|name|price|categoryId|description")
			return
		}
		b.send(chatID, "❌ "+err.Error())
		return
	}
	cur, err := b.backend.MenuItem(ctx, id)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	in.Available = cur.Available
	it, err := b.backend.UpdateMenuItem(ctx, id, in)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Updated %s at %s.", it.Name, services.FormatMoney(it.Price)))
}

// handleItemAvailable switches a dish on or off, e.g. when the kitchen runs out.
func (b *Bot) handleItemAvailable(ctx context.Context, chatID int64, args string) {
	id, available, err := parseAvailability(args)
	if err != nil {
		b.send(chatID, "Usage: /item_available <id> on|off")
		return
	}
	cur, err := b.backend.MenuItem(ctx, id)
	if err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	in := itemInput(cur)
	in.Available = available
	if _, err := b.backend.UpdateMenuItem(ctx, id, in); err != nil {
		b.send(chatID, "❌ "+describeAPIError(err))
		return
	}
	state := "available"
	if !available {
		state = "sold out"
	}
	b.send(chatID, fmt.Sprintf("✅ %s is now %s.", cur.Name, state))
}

// handleAdminCallback handles order card buttons meant for staff.
func (b *Bot) handleAdminCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) bool {
	data := cq.Data
	if !strings.HasPrefix(data, services.CallbackOrderStatus) && !strings.HasPrefix(data, services.CallbackOrderPaid) {
		return false
	}
	chatID := cq.Message.Chat.ID
	if !b.sess.isAdmin(chatID) {
		b.AnswerCallbackQuery(cq.ID, "Admins only")
		return true
	}

	if orderID, ok := strings.CutPrefix(data, services.CallbackOrderPaid); ok {
		b.markPaid(ctx, cq, orderID)
		return true
	}
	orderID, status, ok := services.ParseStatusCallback(data)
	if !ok {
		b.AnswerCallbackQuery(cq.ID, "")
		return true
	}
	b.changeStatus(ctx, cq, orderID, status)
	return true
}

func (b *Bot) changeStatus(ctx context.Context, cq *tgbotapi.CallbackQuery, orderID, status string) {
	unlock := b.lockOrder(orderID)
	o, err := b.findOrder(ctx, orderID)
	if err != nil {
		unlock()
		b.AnswerCallbackQuery(cq.ID, describeAPIError(err))
		return
	}
	if !services.ValidStatusTransition(o.Status, status) {
		unlock()
		b.AnswerCallbackQuery(cq.ID, fmt.Sprintf("Order is already %s", services.StatusLabel(o.Status)))
		b.upsertOrderCard(ctx, services.AudienceAdmin, cq.Message.Chat.ID, &o, false)
		return
	}
	if err := b.backend.UpdateOrderStatus(ctx, orderID, status); err != nil {
		unlock()
		b.log.Warn("update order status", zap.String("order_id", orderID), zap.String("status", status), zap.Error(err))
		b.AnswerCallbackQuery(cq.ID, describeAPIError(err))
		return
	}
	unlock()
	o.Status = status
	b.log.Info("order status changed", zap.String("order_id", orderID), zap.String("status", status), zap.Int64("by_chat", cq.Message.Chat.ID))
	b.AnswerCallbackQuery(cq.ID, services.StatusLabel(status))
	b.RefreshOrderCards(ctx, &o, true)
}

func (b *Bot) markPaid(ctx context.Context, cq *tgbotapi.CallbackQuery, orderID string) {
	unlock := b.lockOrder(orderID)
	err := b.backend.MarkOrderPaid(ctx, orderID)
	var o models.Order
	if err == nil {
		o, err = b.findOrder(ctx, orderID)
	}
	unlock()
	if err != nil {
		b.log.Warn("mark order paid", zap.String("order_id", orderID), zap.Error(err))
		b.AnswerCallbackQuery(cq.ID, describeAPIError(err))
		return
	}
	b.AnswerCallbackQuery(cq.ID, "Marked as paid")
	b.RefreshOrderCards(ctx, &o, false)
}
