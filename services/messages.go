package services

import (
	"context"
	"encoding/json"
	"fmt"

	"table-order/db"
)

const (
	MetaSentVia       = "sent_via"
	SentViaStatusNote = "order_status_notify"
)

// SaveOutboundMessage persists an outbound system message (e.g. order status notify).
func SaveOutboundMessage(ctx context.Context, chatID int64, content string, meta map[string]interface{}) error {
	metaJSON := "{}"
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		metaJSON = string(b)
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO outbound_messages (chat_id, content, meta)
		VALUES ($1, $2, $3::jsonb)`,
		chatID, content, metaJSON,
	)
	return err
}

// StatusNotifyMeta is the meta stored with a customer status notification.
func StatusNotifyMeta(orderID, status string) map[string]interface{} {
	return map[string]interface{}{
		MetaSentVia: SentViaStatusNote,
		"order_id":  orderID,
		"status":    status,
	}
}

// SentOrderStatusNotifyWithin30s returns true if the same order_id and status was already sent in the last 30 seconds (de-dup).
func SentOrderStatusNotifyWithin30s(ctx context.Context, orderID, status string) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM outbound_messages
		WHERE meta->>'sent_via' = $1
		  AND meta->>'order_id' = $2 AND meta->>'status' = $3
		  AND created_at > now() - interval '30 seconds'`,
		SentViaStatusNote, orderID, status,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
