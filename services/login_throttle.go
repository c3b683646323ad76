package services

import (
	"context"
	"math"
	"time"

	"table-order/db"
)

const (
	ThrottleRoleAdmin          = "admin"
	ThrottleCooldownCapSeconds = 30
)

// LoginThrottleWaitSeconds returns how many seconds the chat must wait before trying again (0 if no cooldown).
func LoginThrottleWaitSeconds(ctx context.Context, chatID int64, role string) (int, error) {
	var cooldownUntil *time.Time
	err := db.Pool.QueryRow(ctx, `
		SELECT cooldown_until FROM login_throttle WHERE chat_id = $1 AND role = $2`,
		chatID, role,
	).Scan(&cooldownUntil)
	if err != nil {
		return 0, nil // no row = no throttle
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	return WaitSecondsUntil(*cooldownUntil, time.Now()), nil
}

// RecordLoginFailed increments fail_count and sets cooldown_until = now() + min(30, 2^fail_count) seconds.
func RecordLoginFailed(ctx context.Context, chatID int64, role string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (chat_id, role, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, $2, 1, now(), now() + (LEAST(30, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (chat_id, role) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST(30, POWER(2, login_throttle.fail_count + 1)::int) || ' seconds')::interval,
			updated_at = now()`,
		chatID, role,
	)
	return err
}

// RecordLoginSuccess resets fail_count and cooldown_until for the chat/role.
func RecordLoginSuccess(ctx context.Context, chatID int64, role string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (chat_id, role, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, $2, 0, NULL, NULL, now())
		ON CONFLICT (chat_id, role) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		chatID, role,
	)
	return err
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}

// WaitSecondsUntil rounds the remaining cooldown up to whole seconds.
func WaitSecondsUntil(until, now time.Time) int {
	if !now.Before(until) {
		return 0
	}
	return int(until.Sub(now).Seconds()) + 1
}
