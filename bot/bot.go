// Package bot is the Telegram front end: diners browse the menu, fill a cart
// bound to their table and check out; staff manage orders, tables and the menu.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"table-order/api"
	"table-order/cart"
	"table-order/checkout"
	"table-order/config"
	"table-order/invoice"
	"table-order/models"
	"table-order/services"
	"table-order/ws"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Backend is the restaurant API as the bot uses it. *api.Client implements it.
type Backend interface {
	Categories(ctx context.Context) ([]models.Category, error)
	MenuItems(ctx context.Context, availableOnly bool) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, id string) (models.MenuItem, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error

	TableBySlug(ctx context.Context, slug string) (models.Table, error)
	Tables(ctx context.Context) ([]models.Table, error)
	CreateTable(ctx context.Context, in models.TableInput) (models.Table, error)
	ToggleTable(ctx context.Context, id string) error
	DeleteTable(ctx context.Context, id string) error
	TableQR(ctx context.Context, id string) ([]byte, error)

	MyOrder(ctx context.Context, id string) (models.Order, error)
	CancelMyOrder(ctx context.Context, id string) error
	Orders(ctx context.Context) ([]models.Order, error)
	UpdateMenuItem(ctx context.Context, id string, in models.MenuItemInput) (models.MenuItem, error)
	UpdateTable(ctx context.Context, id string, in models.TableInput) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
	MarkOrderPaid(ctx context.Context, id string) error
}

type Bot struct {
	api       *tgbotapi.BotAPI
	backend   Backend
	checkout  *checkout.Service
	slot      cart.Slot
	adminHash string
	log       *zap.Logger
	sess      *sessions

	carts   map[int64]*cart.Store
	cartsMu sync.Mutex

	orderLocks sync.Map // order id -> *sync.Mutex
}

// New creates the bot. persistent reports whether admin sessions and order
// card pointers can be stored in Postgres.
func New(cfg *config.Config, backend Backend, co *checkout.Service, slot cart.Slot, persistent bool, log *zap.Logger) (*Bot, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("TOKEN not set")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:       botAPI,
		backend:   backend,
		checkout:  co,
		slot:      slot,
		adminHash: cfg.Telegram.AdminPasswordHash,
		log:       log,
		sess:      newSessions(persistent, log),
		carts:     make(map[int64]*cart.Store),
	}, nil
}

// cartFor returns the chat's cart, creating it (and restoring its table) on first use.
func (b *Bot) cartFor(ctx context.Context, chatID int64) *cart.Store {
	b.cartsMu.Lock()
	defer b.cartsMu.Unlock()
	if s, ok := b.carts[chatID]; ok {
		return s
	}
	key := cart.SlotKey(strconv.FormatInt(chatID, 10))
	s := cart.New(ctx, cart.NewPersistence(b.slot, key, b.log), cart.WithLogger(b.log))
	b.carts[chatID] = s
	return s
}

// lockOrder locks by orderID and returns an unlock function. Used to prevent concurrent edits of the same order cards.
func (b *Bot) lockOrder(orderID string) func() {
	v, _ := b.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Start"},
			{Command: "menu", Description: "Browse the menu"},
			{Command: "cart", Description: "Your cart"},
			{Command: "table", Description: "Set your table"},
			{Command: "orders", Description: "My orders"},
			{Command: "leave", Description: "Leave the table"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start receives updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn("set bot commands", zap.Error(err))
	}
	b.sess.loadAdmins(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			continue
		}
		if update.Message == nil {
			continue
		}
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd, args := parseCommand(msg.Text)

	if b.handleAdminCommand(ctx, msg, cmd, args) {
		return
	}

	switch cmd {
	case "start":
		if args != "" {
			b.joinTable(ctx, chatID, args)
			return
		}
		b.handleStart(ctx, chatID)
	case "table":
		if args == "" {
			b.send(chatID, "Send /table followed by the code or link printed on your table's QR card.")
			return
		}
		b.joinTable(ctx, chatID, args)
	case "menu":
		b.sendMenu(ctx, chatID)
	case "cart":
		b.sendCart(ctx, chatID, 0)
	case "note":
		b.handleNote(ctx, chatID, args)
	case "orders":
		b.handleOrders(ctx, chatID)
	case "cancel":
		b.cancelOrder(ctx, chatID, strings.TrimSpace(args))
	case "leave":
		b.cartFor(ctx, chatID).ClearTable(ctx)
		b.send(chatID, "👋 You left the table. Your cart is kept; set a new table before ordering.")
	case "help":
		b.handleStart(ctx, chatID)
	case "":
		// A scanned QR link pasted as plain text.
		if strings.Contains(args, "/m/") || strings.Contains(args, "/table/") {
			b.joinTable(ctx, chatID, args)
			return
		}
		b.send(chatID, "Use /menu to order or /cart to see your cart.")
	default:
		b.send(chatID, "Unknown command. Use /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	st := b.cartFor(ctx, chatID).State()
	text := "👋 Welcome! Scan the QR code on your table or send /table <code>, then pick dishes from /menu.\n\n" +
		"/menu – browse the menu\n/cart – review and check out\n/note <n> <text> – note for cart line n\n" +
		"/orders – your orders\n/leave – leave the table"
	if st.Table != nil {
		text = fmt.Sprintf("👋 Welcome back! You are at table %s.\n\n", st.Table.TableNumber) + text
	}
	b.send(chatID, text)
}

// joinTable resolves a QR slug or link and binds the chat's cart to that table.
func (b *Bot) joinTable(ctx context.Context, chatID int64, input string) {
	slug := services.ParseTableSlug(input)
	if slug == "" {
		b.send(chatID, "That code is empty. Send /table <code>.")
		return
	}
	t, err := b.backend.TableBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			b.send(chatID, "❌ Table not found. Check the code and try again.")
			return
		}
		b.log.Warn("resolve table", zap.String("slug", slug), zap.Error(err))
		b.send(chatID, "⚠️ Could not look up the table right now. Please try again.")
		return
	}
	if !t.Active {
		b.send(chatID, fmt.Sprintf("Table %s is not taking orders at the moment.", t.Number))
		return
	}
	b.cartFor(ctx, chatID).SetTable(ctx, t.Number, t.ID)
	b.sendWithInline(chatID, fmt.Sprintf("🪑 You're at table %s. Enjoy your meal!", t.Number),
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Menu", cbMenu),
		)))
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64) {
	cats, err := b.backend.Categories(ctx)
	if err != nil {
		b.log.Warn("load categories", zap.Error(err))
		b.send(chatID, "⚠️ The menu is unavailable right now.")
		return
	}
	b.sendWithInline(chatID, "📋 Pick a category:", categoryKeyboard(cats))
}

func (b *Bot) sendCategoryMenu(ctx context.Context, chatID int64, categoryID string) {
	items, err := b.backend.MenuItems(ctx, true)
	if err != nil {
		b.log.Warn("load menu items", zap.Error(err))
		b.send(chatID, "⚠️ The menu is unavailable right now.")
		return
	}
	items = models.FilterByCategory(items, categoryID)
	b.sendWithInline(chatID, menuText(items), menuKeyboard(items))
}

func (b *Bot) addToCart(ctx context.Context, cq *tgbotapi.CallbackQuery, itemID string) {
	it, err := b.backend.MenuItem(ctx, itemID)
	if err != nil {
		b.log.Warn("load menu item", zap.String("item_id", itemID), zap.Error(err))
		b.AnswerCallbackQuery(cq.ID, "Item not found")
		return
	}
	if !it.Available {
		b.AnswerCallbackQuery(cq.ID, "Sorry, "+it.Name+" is sold out")
		return
	}
	s := b.cartFor(ctx, cq.Message.Chat.ID)
	s.AddItem(it, 1)
	line, _ := s.Line(it.ID)
	b.AnswerCallbackQuery(cq.ID, fmt.Sprintf("Added %s (×%d)", it.Name, line.Quantity))
}

// sendCart sends the cart, or edits messageID in place when it is non-zero.
func (b *Bot) sendCart(ctx context.Context, chatID int64, messageID int) {
	st := b.cartFor(ctx, chatID).State()
	kb := cartKeyboard(st)
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, cartText(st), kb)
		if _, err := b.api.Send(edit); err != nil && !strings.Contains(err.Error(), "not modified") {
			b.log.Warn("edit cart", zap.Error(err))
		}
		return
	}
	b.sendWithInline(chatID, cartText(st), kb)
}

func (b *Bot) handleNote(ctx context.Context, chatID int64, args string) {
	n, note, err := parseNoteArgs(args)
	if err != nil {
		b.send(chatID, "Usage: /note <line number> <text>, e.g. /note 1 no onions")
		return
	}
	s := b.cartFor(ctx, chatID)
	lines := s.Lines()
	if n > len(lines) {
		b.send(chatID, fmt.Sprintf("Your cart has %d line(s).", len(lines)))
		return
	}
	s.SetNote(lines[n-1].MenuItemID, note)
	b.sendCart(ctx, chatID, 0)
}

func (b *Bot) handleCheckout(ctx context.Context, cq *tgbotapi.CallbackQuery, method checkout.Method) {
	chatID := cq.Message.Chat.ID
	s := b.cartFor(ctx, chatID)
	if method == checkout.MethodDigital {
		b.send(chatID, "💳 Processing payment…")
	}
	order, err := b.checkout.PlaceOrder(ctx, s, method)
	switch {
	case errors.Is(err, checkout.ErrInProgress):
		b.AnswerCallbackQuery(cq.ID, "Payment in progress")
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		b.AnswerCallbackQuery(cq.ID, "Your cart is empty")
		return
	case errors.Is(err, checkout.ErrNoTable):
		b.AnswerCallbackQuery(cq.ID, "")
		b.send(chatID, "🪑 Please scan your table's QR code or send /table <code> first.")
		return
	case err != nil:
		b.AnswerCallbackQuery(cq.ID, "")
		b.log.Warn("checkout failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, "❌ Could not place the order. Your cart is unchanged; please try again.")
		return
	}
	b.AnswerCallbackQuery(cq.ID, "Order placed")
	b.send(chatID, fmt.Sprintf("✅ Order #%s placed! We'll keep you posted here.", order.Number()))
	b.upsertOrderCard(ctx, services.AudienceCustomer, chatID, &order, true)
	b.notifyAdmins(ctx, &order)
}

func (b *Bot) handleOrders(ctx context.Context, chatID int64) {
	ids := b.sess.customerOrders(ctx, chatID)
	if len(ids) == 0 {
		b.send(chatID, "You have no orders yet.")
		return
	}
	for _, id := range ids {
		o, err := b.backend.MyOrder(ctx, id)
		if err != nil {
			b.log.Warn("load order", zap.String("order_id", id), zap.Error(err))
			continue
		}
		b.upsertOrderCard(ctx, services.AudienceCustomer, chatID, &o, true)
	}
}

// ownsOrder reports whether the order was placed from this chat.
func (b *Bot) ownsOrder(ctx context.Context, chatID int64, orderID string) bool {
	p, ok := b.sess.pointer(ctx, orderID, chatID)
	return ok && p.Audience == services.AudienceCustomer
}

func (b *Bot) cancelOrder(ctx context.Context, chatID int64, orderID string) {
	if orderID == "" {
		b.send(chatID, "Usage: /cancel <order id>. See /orders.")
		return
	}
	if !b.ownsOrder(ctx, chatID, orderID) {
		b.send(chatID, "Order not found.")
		return
	}
	unlock := b.lockOrder(orderID)
	o, err := b.backend.MyOrder(ctx, orderID)
	if err == nil && !services.CanCustomerCancel(&o) {
		unlock()
		b.send(chatID, "This order is already being prepared and can no longer be canceled.")
		return
	}
	if err == nil {
		err = b.backend.CancelMyOrder(ctx, orderID)
	}
	unlock()
	if err != nil {
		b.log.Warn("cancel order", zap.String("order_id", orderID), zap.Error(err))
		b.send(chatID, "❌ Could not cancel the order.")
		return
	}
	o.Status = models.OrderStatusCanceled
	b.RefreshOrderCards(ctx, &o, true)
}

func (b *Bot) sendBill(ctx context.Context, chatID int64, orderID string) {
	if !b.ownsOrder(ctx, chatID, orderID) {
		b.send(chatID, "Order not found.")
		return
	}
	o, err := b.backend.MyOrder(ctx, orderID)
	if err != nil {
		b.log.Warn("load order for bill", zap.String("order_id", orderID), zap.Error(err))
		b.send(chatID, "❌ Could not load the order.")
		return
	}
	var buf bytes.Buffer
	if err := invoice.RenderBill(&buf, o, time.Now()); err != nil {
		b.log.Error("render bill", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: invoice.BillFilename(o), Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Bill for order #%s · %s", o.Number(), services.FormatMoney(o.Total))
	if _, err := b.api.Send(doc); err != nil {
		b.log.Warn("send bill", zap.Error(err))
	}
}

// upsertOrderCard edits the chat's existing card for the order when there is
// one; otherwise, or when fresh is set, it sends a new card and remembers it.
func (b *Bot) upsertOrderCard(ctx context.Context, audience string, chatID int64, o *models.Order, fresh bool) {
	content := services.BuildCustomerCard(o)
	if audience == services.AudienceAdmin {
		content = services.BuildAdminCard(o)
	}
	if p, ok := b.sess.pointer(ctx, o.ID, chatID); ok && !fresh {
		edit := tgbotapi.NewEditMessageText(chatID, p.MessageID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		} else {
			emptyKb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
			edit.ReplyMarkup = &emptyKb
		}
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		errStr := err.Error()
		if strings.Contains(errStr, "not modified") {
			return
		}
		if !strings.Contains(errStr, "not found") {
			b.log.Warn("edit order card", zap.String("order_id", o.ID), zap.String("audience", audience), zap.Error(err))
			return
		}
		// The card was deleted: fall through and send a new one.
	}
	msg := tgbotapi.NewMessage(chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("send order card", zap.String("order_id", o.ID), zap.String("audience", audience), zap.Error(err))
		return
	}
	b.sess.savePointer(ctx, services.OrderMessagePointer{OrderID: o.ID, ChatID: chatID, Audience: audience, MessageID: sent.MessageID})
}

// RefreshOrderCards re-renders every card shown for the order. With notify set
// the diner is also told when the status moved.
func (b *Bot) RefreshOrderCards(ctx context.Context, o *models.Order, notify bool) {
	unlock := b.lockOrder(o.ID)
	defer func() {
		unlock()
		if services.IsFinalStatus(o.Status) {
			b.orderLocks.Delete(o.ID)
		}
	}()

	for _, p := range b.sess.orderPointers(ctx, o.ID) {
		b.upsertOrderCard(ctx, p.Audience, p.ChatID, o, false)
		if !notify || p.Audience != services.AudienceCustomer || o.Status == models.OrderStatusPlaced {
			continue
		}
		if !b.sess.shouldNotify(ctx, o.ID, o.Status) {
			continue
		}
		text := services.CustomerMessageForOrderStatus(o, o.Status)
		b.send(p.ChatID, text)
		b.sess.recordNotify(ctx, p.ChatID, o.ID, o.Status, text)
	}
}

// notifyAdmins shows the order to every logged-in admin that has not seen it.
func (b *Bot) notifyAdmins(ctx context.Context, o *models.Order) {
	unlock := b.lockOrder(o.ID)
	defer unlock()
	for _, chatID := range b.sess.adminChats() {
		if _, ok := b.sess.pointer(ctx, o.ID, chatID); ok {
			continue
		}
		b.upsertOrderCard(ctx, services.AudienceAdmin, chatID, o, true)
	}
}

// HandleOrderEvent applies a push from the order feed.
func (b *Bot) HandleOrderEvent(ctx context.Context, ev ws.Event) {
	switch ev.Type {
	case ws.EventOrderNew:
		b.notifyAdmins(ctx, &ev.Order)
	case ws.EventOrderUpdated:
		b.RefreshOrderCards(ctx, &ev.Order, true)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	data := cq.Data

	if b.handleAdminCallback(ctx, cq) {
		return
	}
	// These answer the callback themselves with a toast.
	switch {
	case strings.HasPrefix(data, cbAdd):
		b.addToCart(ctx, cq, strings.TrimPrefix(data, cbAdd))
		return
	case strings.HasPrefix(data, cbPay):
		// The mock gateway delay must not hold up other chats.
		go b.handleCheckout(ctx, cq, checkout.Method(strings.TrimPrefix(data, cbPay)))
		return
	}
	b.AnswerCallbackQuery(cq.ID, "")

	switch {
	case data == cbMenu:
		b.sendMenu(ctx, chatID)
	case data == cbCart:
		b.sendCart(ctx, chatID, 0)
	case data == cbClear:
		b.cartFor(ctx, chatID).ClearItems()
		b.sendCart(ctx, chatID, cq.Message.MessageID)
	case strings.HasPrefix(data, cbCategory):
		b.sendCategoryMenu(ctx, chatID, strings.TrimPrefix(data, cbCategory))
	case strings.HasPrefix(data, cbInc):
		b.cartFor(ctx, chatID).Increment(strings.TrimPrefix(data, cbInc))
		b.sendCart(ctx, chatID, cq.Message.MessageID)
	case strings.HasPrefix(data, cbDec):
		b.cartFor(ctx, chatID).Decrement(strings.TrimPrefix(data, cbDec))
		b.sendCart(ctx, chatID, cq.Message.MessageID)
	case strings.HasPrefix(data, cbRemove):
		b.cartFor(ctx, chatID).RemoveItem(strings.TrimPrefix(data, cbRemove))
		b.sendCart(ctx, chatID, cq.Message.MessageID)
	case strings.HasPrefix(data, services.CallbackOrderCancel):
		b.cancelOrder(ctx, chatID, strings.TrimPrefix(data, services.CallbackOrderCancel))
	case strings.HasPrefix(data, services.CallbackOrderBill):
		b.sendBill(ctx, chatID, strings.TrimPrefix(data, services.CallbackOrderBill))
	}
}

// AnswerCallbackQuery sends a short toast for the callback (no new message).
func (b *Bot) AnswerCallbackQuery(callbackQueryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackQueryID, text)); err != nil {
		b.log.Debug("answer callback", zap.Error(err))
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
