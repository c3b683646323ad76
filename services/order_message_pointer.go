package services

import (
	"context"
	"strings"

	"table-order/db"
)

const (
	AudienceAdmin    = "admin"
	AudienceCustomer = "customer"
)

// OrderMessagePointer locates the Telegram message that shows an order card.
type OrderMessagePointer struct {
	OrderID   string
	ChatID    int64
	Audience  string
	MessageID int
}

// EnsureOrderMessagePointersTable creates order_message_pointers if missing (safety net when migrate was not run).
func EnsureOrderMessagePointersTable(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_message_pointers (
			order_id TEXT NOT NULL,
			chat_id BIGINT NOT NULL,
			audience TEXT NOT NULL CHECK (audience IN ('admin','customer')),
			message_id INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (order_id, chat_id)
		);
		CREATE INDEX IF NOT EXISTS idx_order_message_pointers_order_id ON order_message_pointers(order_id);
	`)
	return err
}

func isRelationNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "order_message_pointers") && strings.Contains(err.Error(), "does not exist")
}

// OrderMessagePointers returns every card shown for the order, across chats.
func OrderMessagePointers(ctx context.Context, orderID string) ([]OrderMessagePointer, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT chat_id, audience, message_id FROM order_message_pointers
		WHERE order_id = $1 ORDER BY updated_at`,
		orderID,
	)
	if err != nil {
		if isRelationNotExist(err) {
			if ensureErr := EnsureOrderMessagePointersTable(ctx); ensureErr != nil {
				return nil, ensureErr
			}
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	var res []OrderMessagePointer
	for rows.Next() {
		p := OrderMessagePointer{OrderID: orderID}
		if err := rows.Scan(&p.ChatID, &p.Audience, &p.MessageID); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpsertOrderMessagePointer inserts or updates the message pointer for (order_id, chat_id).
func UpsertOrderMessagePointer(ctx context.Context, p OrderMessagePointer) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO order_message_pointers (order_id, chat_id, audience, message_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (order_id, chat_id) DO UPDATE SET audience = EXCLUDED.audience, message_id = EXCLUDED.message_id, updated_at = now()`,
		p.OrderID, p.ChatID, p.Audience, p.MessageID,
	)
	if err != nil && isRelationNotExist(err) {
		if ensureErr := EnsureOrderMessagePointersTable(ctx); ensureErr != nil {
			return ensureErr
		}
		return UpsertOrderMessagePointer(ctx, p)
	}
	return err
}

// ChatOrderIDs lists orders that have a card of the given audience in chat, newest first.
func ChatOrderIDs(ctx context.Context, chatID int64, audience string, limit int) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT order_id FROM order_message_pointers
		WHERE chat_id = $1 AND audience = $2
		ORDER BY updated_at DESC LIMIT $3`,
		chatID, audience, limit,
	)
	if err != nil {
		if isRelationNotExist(err) {
			return nil, EnsureOrderMessagePointersTable(ctx)
		}
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
