package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func feedServer(t *testing.T, serve func(n int, conn *websocket.Conn)) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var conns int32
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(int(atomic.AddInt32(&conns, 1)), conn)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func collect(t *testing.T, l *Listener, want int) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := make(chan Event, want)
	errc := make(chan error, 1)
	go func() {
		errc <- l.Run(ctx, func(ev Event) { events <- ev })
	}()

	var got []Event
	for len(got) < want {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-ctx.Done():
			t.Fatalf("timed out with %d of %d events", len(got), want)
		}
	}
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	return got
}

func TestListener_DeliversOrderEvents(t *testing.T) {
	url := feedServer(t, func(_ int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"order:new","order":{"_id":"o-1","status":"placed","total":50}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"order:updated","data":{"order":{"_id":"o-1","status":"preparing"}}}`))
		// hold the connection open until the client goes away
		_, _, _ = conn.ReadMessage()
	})

	got := collect(t, NewListener(url), 2)
	assert.Equal(t, EventOrderNew, got[0].Type)
	assert.Equal(t, "o-1", got[0].Order.ID)
	assert.Equal(t, "50", got[0].Order.Total.String())
	assert.Equal(t, EventOrderUpdated, got[1].Type)
	assert.Equal(t, "preparing", got[1].Order.Status)
}

func TestListener_Reconnects(t *testing.T) {
	url := feedServer(t, func(n int, conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]interface{}{
			"event": EventOrderUpdated,
			"order": map[string]interface{}{"_id": "o-" + string(rune('0'+n)), "status": "ready"},
		})
		if n > 1 {
			_, _, _ = conn.ReadMessage()
		}
	})

	l := NewListener(url, WithBackoff(10*time.Millisecond, 20*time.Millisecond))
	got := collect(t, l, 2)
	assert.Equal(t, "o-1", got[0].Order.ID)
	assert.Equal(t, "o-2", got[1].Order.ID)
}

func TestListener_SendsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seen := make(chan string, 1)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		select {
		case seen <- c.GetHeader("Authorization"):
		default:
		}
		c.Status(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", WithToken("abc"), WithBackoff(5*time.Millisecond, 5*time.Millisecond))
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx, func(Event) {}) }()

	select {
	case h := <-seen:
		assert.Equal(t, "Bearer abc", h)
	case <-time.After(5 * time.Second):
		t.Fatal("no dial attempt")
	}
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte(`{"event":"order:new","order":{"_id":"o-7","orderNumber":"ORD-7"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ORD-7", ev.Order.Number())

	ev, err = decodeEvent([]byte(`{"event":"table:updated","data":{}}`))
	require.NoError(t, err)
	assert.Empty(t, ev.Type)

	_, err = decodeEvent([]byte(`{"event":"order:new"}`))
	assert.ErrorIs(t, err, errNoOrder)

	_, err = decodeEvent([]byte(`{"event":"order:new","order":{"status":"placed"}}`))
	assert.Error(t, err, "orders need an id")
}
