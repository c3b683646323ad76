// Package ws follows the backend's live order feed.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"table-order/api"
	"table-order/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventOrderNew     = "order:new"
	EventOrderUpdated = "order:updated"
)

// Event is one order notification pushed by the backend.
type Event struct {
	Type  string
	Order models.Order
}

type frame struct {
	Event string          `json:"event"`
	Order json.RawMessage `json:"order"`
	Data  json.RawMessage `json:"data"`
}

// Listener keeps a WebSocket connection to the order feed open, redialing
// with capped exponential backoff when it drops.
type Listener struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
	log        *zap.Logger
}

type Option func(*Listener)

func WithToken(token string) Option {
	return func(l *Listener) {
		if token != "" {
			l.header.Set("Authorization", "Bearer "+token)
		}
	}
}

func WithBackoff(min, max time.Duration) Option {
	return func(l *Listener) {
		l.minBackoff, l.maxBackoff = min, max
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Listener) {
		if log != nil {
			l.log = log
		}
	}
}

func NewListener(url string, opts ...Option) *Listener {
	l := &Listener{
		url:        url,
		header:     http.Header{},
		dialer:     websocket.DefaultDialer,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run delivers events to handle until ctx is cancelled. handle is called from
// the Run goroutine, one event at a time.
func (l *Listener) Run(ctx context.Context, handle func(Event)) error {
	backoff := l.minBackoff
	for {
		connected, err := l.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = l.minBackoff
		}
		l.log.Warn("order feed disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

func (l *Listener) session(ctx context.Context, handle func(Event)) (connected bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, l.header)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()
	l.log.Info("order feed connected", zap.String("url", l.url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		ev, err := decodeEvent(data)
		if err != nil {
			l.log.Warn("skipping order feed frame", zap.Error(err))
			continue
		}
		if ev.Type == "" {
			continue
		}
		handle(ev)
	}
}

var errNoOrder = errors.New("frame carries no order")

// decodeEvent parses {"event": ..., "order"|"data": {...}}. Frames for other
// events decode to a zero Event.
func decodeEvent(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event != EventOrderNew && f.Event != EventOrderUpdated {
		return Event{}, nil
	}
	raw := f.Order
	if len(raw) == 0 || string(raw) == "null" {
		raw = f.Data
	}
	if len(raw) == 0 || string(raw) == "null" {
		return Event{}, errNoOrder
	}
	var nested struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Order) > 0 && string(nested.Order) != "null" {
		raw = nested.Order
	}
	o, err := api.DecodeOrder(raw)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: f.Event, Order: o}, nil
}
