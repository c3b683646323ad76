package services

import (
	"context"

	"table-order/db"
)

// SetAdminSession marks a chat as logged in to the admin commands.
func SetAdminSession(ctx context.Context, chatID int64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO admin_sessions (chat_id, logged_in)
		VALUES ($1, now())
		ON CONFLICT (chat_id) DO UPDATE SET logged_in = now()`,
		chatID,
	)
	return err
}

// AdminChats returns every chat that has logged in.
func AdminChats(ctx context.Context) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `SELECT chat_id FROM admin_sessions ORDER BY logged_in`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func DeleteAdminSession(ctx context.Context, chatID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM admin_sessions WHERE chat_id = $1`, chatID)
	return err
}
