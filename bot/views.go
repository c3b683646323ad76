package bot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"table-order/cart"
	"table-order/models"
	"table-order/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Callback data prefixes for the customer keyboards. Order card callbacks live in services.
const (
	cbCategory = "cat:"
	cbAdd      = "add:"
	cbInc      = "inc:"
	cbDec      = "dec:"
	cbRemove   = "rm:"
	cbPay      = "pay:"
	cbCart     = "cart"
	cbClear    = "clear"
	cbMenu     = "menu"
)

// parseCommand splits "/cmd@Bot args" into "cmd" and "args". Plain text yields an empty command.
func parseCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func categoryKeyboard(cats []models.Category) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🍽 All", cbCategory)),
	}
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Name, cbCategory+c.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func menuKeyboard(items []models.MenuItem) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range items {
		label := fmt.Sprintf("➕ %s · %s", it.Name, services.FormatMoney(it.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, cbAdd+it.ID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Categories", cbMenu),
		tgbotapi.NewInlineKeyboardButtonData("🛒 Cart", cbCart),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func menuText(items []models.MenuItem) string {
	if len(items) == 0 {
		return "Nothing available in this category right now."
	}
	var b strings.Builder
	b.WriteString("📋 Menu\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%s · %s", it.Name, services.FormatMoney(it.Price))
		if it.Vegan {
			b.WriteString(" 🌱")
		} else if it.Vegetarian {
			b.WriteString(" 🥗")
		}
		b.WriteString("\n")
		if it.Description != "" {
			fmt.Fprintf(&b, "   %s\n", it.Description)
		}
	}
	return b.String()
}

func tableLabel(st cart.State) string {
	if st.Table == nil {
		return "no table"
	}
	return "table " + st.Table.TableNumber
}

func cartText(st cart.State) string {
	if st.Empty() {
		return fmt.Sprintf("🛒 Your cart is empty (%s).\nUse /menu to add dishes.", tableLabel(st))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 Cart · %s\n\n", tableLabel(st))
	for i, l := range st.Lines {
		fmt.Fprintf(&b, "%d. %s × %d = %s\n", i+1, l.MenuItem.Name, l.Quantity, services.FormatMoney(l.Subtotal()))
		if l.Note != "" {
			fmt.Fprintf(&b, "   ✏️ %s\n", l.Note)
		}
	}
	fmt.Fprintf(&b, "\nItems: %d\n💵 Total: %s", st.Count(), services.FormatMoney(st.Total()))
	if st.Table == nil {
		b.WriteString("\n\n⚠️ Scan your table's QR code or send /table <code> before checkout.")
	}
	return b.String()
}

func cartKeyboard(st cart.State) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range st.Lines {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", cbDec+l.MenuItemID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s ×%d", l.MenuItem.Name, l.Quantity), cbCart),
			tgbotapi.NewInlineKeyboardButtonData("➕", cbInc+l.MenuItemID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbRemove+l.MenuItemID),
		))
	}
	if !st.Empty() {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💵 Pay cash", cbPay+models.PaymentMethodCash),
				tgbotapi.NewInlineKeyboardButtonData("💳 Pay online", cbPay+models.PaymentMethodDigital),
			),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🧹 Clear cart", cbClear)),
		)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 Menu", cbMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var errUsage = errors.New("usage")

// parseNoteArgs reads "<line number> <note>". An empty note clears it.
func parseNoteArgs(args string) (line int, note string, err error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	n, err := strconv.Atoi(head)
	if err != nil || n < 1 {
		return 0, "", errUsage
	}
	return n, strings.TrimSpace(rest), nil
}

// parseAddTable reads "<number> <capacity> [location...]".
func parseAddTable(args string) (models.TableInput, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return models.TableInput{}, errUsage
	}
	capacity, err := strconv.Atoi(fields[1])
	if err != nil {
		return models.TableInput{}, fmt.Errorf("capacity %q is not a number", fields[1])
	}
	return models.TableInput{
		Number:   fields[0],
		Capacity: capacity,
		Location: strings.Join(fields[2:], " "),
	}, nil
}

// parseAddItem reads "name|price|categoryId|description"; the description is optional.
func parseAddItem(args string) (models.MenuItemInput, error) {
	parts := strings.Split(args, "|")
	if len(parts) < 3 {
		return models.MenuItemInput{}, errUsage
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return models.MenuItemInput{}, fmt.Errorf("price %q is not a number", parts[1])
	}
	in := models.MenuItemInput{
		Name:       parts[0],
		Price:      price,
		CategoryID: parts[2],
		Available:  true,
	}
	if len(parts) > 3 {
		in.Description = strings.Join(parts[3:], "|")
	}
	return in, nil
}

// parseEditItem reads "id|name|price|categoryId|description".
func parseEditItem(args string) (string, models.MenuItemInput, error) {
	id, rest, ok := strings.Cut(args, "|")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", models.MenuItemInput{}, errUsage
	}
	in, err := parseAddItem(rest)
	return id, in, err
}

// parseEditTable reads "<id> <number> <capacity> [location...]".
func parseEditTable(args string) (string, models.TableInput, error) {
	id, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if id == "" {
		return "", models.TableInput{}, errUsage
	}
	in, err := parseAddTable(rest)
	return id, in, err
}

// parseAvailability reads "<id> on|off".
func parseAvailability(args string) (id string, available bool, err error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", false, errUsage
	}
	switch strings.ToLower(fields[1]) {
	case "on", "yes", "true":
		return fields[0], true, nil
	case "off", "no", "false":
		return fields[0], false, nil
	}
	return "", false, errUsage
}

// itemInput turns a menu item back into the admin form, without the image.
func itemInput(it models.MenuItem) models.MenuItemInput {
	return models.MenuItemInput{
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		CategoryID:  it.CategoryID,
		Available:   it.Available,
	}
}

func tablesText(tables []models.Table) string {
	if len(tables) == 0 {
		return "No tables yet. Add one with /add_table <number> <capacity> <location>."
	}
	var b strings.Builder
	b.WriteString("🪑 Tables\n\n")
	for _, t := range tables {
		state := "🟢"
		if !t.Active {
			state = "⚪️"
		}
		fmt.Fprintf(&b, "%s %s · %d seats", state, t.Number, t.Capacity)
		if t.Location != "" {
			fmt.Fprintf(&b, " · %s", t.Location)
		}
		fmt.Fprintf(&b, "\n   id: %s  slug: %s\n", t.ID, t.Slug)
	}
	return b.String()
}

// latestOrders returns up to n orders, newest first. Orders without a creation
// time keep their relative position after the dated ones.
func latestOrders(orders []models.Order, n int) []models.Order {
	res := append([]models.Order(nil), orders...)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if len(res) > n {
		res = res[:n]
	}
	return res
}
