package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"table-order/api"
	"table-order/models"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTelegram answers getMe and records the text of every sendMessage.
type fakeTelegram struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTelegram) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func newTestBot(t *testing.T, backend Backend) (*Bot, *fakeTelegram) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tg := &fakeTelegram{}
	r := gin.New()
	r.POST("/bottest-token/:method", func(ctx *gin.Context) {
		switch ctx.Param("method") {
		case "getMe":
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "result": gin.H{"id": 1, "is_bot": true, "first_name": "Table", "username": "table_bot"}})
		case "sendMessage":
			tg.mu.Lock()
			tg.texts = append(tg.texts, ctx.PostForm("text"))
			n := len(tg.texts)
			tg.mu.Unlock()
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "result": gin.H{"message_id": n, "date": 0, "chat": gin.H{"id": 42, "type": "private"}}})
		default:
			ctx.JSON(http.StatusOK, gin.H{"ok": true, "result": true})
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	botAPI, err := tgbotapi.NewBotAPIWithClient("test-token", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	log := zap.NewNop()
	return &Bot{
		api:     botAPI,
		backend: backend,
		log:     log,
		sess:    newSessions(false, log),
	}, tg
}

// menuBackend serves one menu item and records updates.
type menuBackend struct {
	Backend
	item        models.MenuItem
	itemUpdates []models.MenuItemInput
	tableID     string
	tableUpdate models.TableInput
}

func (m *menuBackend) MenuItem(_ context.Context, id string) (models.MenuItem, error) {
	if id != m.item.ID {
		return models.MenuItem{}, api.ErrNotFound
	}
	return m.item, nil
}

func (m *menuBackend) UpdateMenuItem(_ context.Context, id string, in models.MenuItemInput) (models.MenuItem, error) {
	m.itemUpdates = append(m.itemUpdates, in)
	return models.MenuItem{ID: id, Name: in.Name, Price: in.Price, CategoryID: in.CategoryID, Available: in.Available}, nil
}

func (m *menuBackend) UpdateTable(_ context.Context, id string, in models.TableInput) error {
	m.tableID, m.tableUpdate = id, in
	return nil
}

func adminMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 42}, Text: text}
}

func dosa() models.MenuItem {
	return models.MenuItem{ID: "m1", Name: "Dosa", Description: "Crispy", Price: decimal.NewFromInt(120), CategoryID: "c1", Available: true}
}

func TestAdminItemAvailable(t *testing.T) {
	be := &menuBackend{item: dosa()}
	b, tg := newTestBot(t, be)
	b.sess.setAdmin(context.Background(), 42)

	b.handleMessage(context.Background(), adminMessage("/item_available m1 off"))

	require.Len(t, be.itemUpdates, 1)
	got := be.itemUpdates[0]
	assert.False(t, got.Available)
	assert.Equal(t, "Dosa", got.Name)
	assert.Equal(t, "Crispy", got.Description)
	assert.Equal(t, "c1", got.CategoryID)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, []string{"✅ Dosa is now sold out."}, tg.sent())
}

func TestAdminEditItemKeepsAvailability(t *testing.T) {
	item := dosa()
	item.Available = false
	be := &menuBackend{item: item}
	b, tg := newTestBot(t, be)
	b.sess.setAdmin(context.Background(), 42)

	b.handleMessage(context.Background(), adminMessage("/edit_item m1|Masala Dosa|150|c2|With chutney"))

	require.Len(t, be.itemUpdates, 1)
	got := be.itemUpdates[0]
	assert.Equal(t, "Masala Dosa", got.Name)
	assert.Equal(t, "c2", got.CategoryID)
	assert.Equal(t, "With chutney", got.Description)
	assert.False(t, got.Available)
	assert.Equal(t, []string{"✅ Updated Masala Dosa at ₹150.00."}, tg.sent())
}

func TestAdminEditTable(t *testing.T) {
	be := &menuBackend{}
	b, tg := newTestBot(t, be)
	b.sess.setAdmin(context.Background(), 42)

	b.handleMessage(context.Background(), adminMessage("/edit_table t-1 12 6 Garden"))

	assert.Equal(t, "t-1", be.tableID)
	assert.Equal(t, models.TableInput{Number: "12", Capacity: 6, Location: "Garden"}, be.tableUpdate)
	assert.Equal(t, []string{"✅ Table 12 updated."}, tg.sent())
}

func TestAdminCommandsNeedLogin(t *testing.T) {
	be := &menuBackend{item: dosa()}
	b, tg := newTestBot(t, be)

	b.handleMessage(context.Background(), adminMessage("/item_available m1 off"))

	assert.Empty(t, be.itemUpdates)
	assert.Equal(t, []string{"🔒 Send /admin <password> first."}, tg.sent())
}

type orderBackend struct {
	Backend
	fetched []string
}

func (o *orderBackend) MyOrder(_ context.Context, id string) (models.Order, error) {
	o.fetched = append(o.fetched, id)
	return models.Order{ID: id}, nil
}

func TestSendBill_OnlyForOwnOrders(t *testing.T) {
	be := &orderBackend{}
	b, tg := newTestBot(t, be)

	b.sendBill(context.Background(), 42, "someone-elses")

	assert.Empty(t, be.fetched)
	assert.Equal(t, []string{"Order not found."}, tg.sent())
}
