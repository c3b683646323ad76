package bot

import (
	"context"
	"testing"
	"time"

	"table-order/models"
	"table-order/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessions_Admins(t *testing.T) {
	ctx := context.Background()
	s := newSessions(false, nil)
	s.loadAdmins(ctx)

	assert.False(t, s.isAdmin(7))
	s.setAdmin(ctx, 7)
	s.setAdmin(ctx, 3)
	assert.True(t, s.isAdmin(7))
	assert.Equal(t, []int64{3, 7}, s.adminChats())

	s.dropAdmin(ctx, 7)
	assert.False(t, s.isAdmin(7))
	assert.Equal(t, []int64{3}, s.adminChats())
}

func TestSessions_LoginThrottle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := newSessions(false, nil)
	s.now = func() time.Time { return now }

	assert.Zero(t, s.loginWait(ctx, 1))

	s.loginFailed(ctx, 1)
	assert.Equal(t, 3, s.loginWait(ctx, 1), "2s cooldown rounds up")
	s.loginFailed(ctx, 1)
	assert.Equal(t, 5, s.loginWait(ctx, 1))
	assert.Zero(t, s.loginWait(ctx, 2), "other chats are unaffected")

	now = now.Add(10 * time.Second)
	assert.Zero(t, s.loginWait(ctx, 1))

	for i := 0; i < 10; i++ {
		s.loginFailed(ctx, 1)
	}
	assert.Equal(t, services.ThrottleCooldownCapSeconds+1, s.loginWait(ctx, 1))

	s.loginSucceeded(ctx, 1)
	assert.Zero(t, s.loginWait(ctx, 1))
}

func TestSessions_Pointers(t *testing.T) {
	ctx := context.Background()
	s := newSessions(false, nil)

	s.savePointer(ctx, services.OrderMessagePointer{OrderID: "o1", ChatID: 10, Audience: services.AudienceCustomer, MessageID: 100})
	s.savePointer(ctx, services.OrderMessagePointer{OrderID: "o1", ChatID: 5, Audience: services.AudienceAdmin, MessageID: 200})
	s.savePointer(ctx, services.OrderMessagePointer{OrderID: "o2", ChatID: 10, Audience: services.AudienceCustomer, MessageID: 101})
	s.savePointer(ctx, services.OrderMessagePointer{OrderID: "o1", ChatID: 10, Audience: services.AudienceCustomer, MessageID: 102})

	ptrs := s.orderPointers(ctx, "o1")
	require.Len(t, ptrs, 2)
	assert.Equal(t, int64(5), ptrs[0].ChatID)
	assert.Equal(t, 102, ptrs[1].MessageID)

	p, ok := s.pointer(ctx, "o2", 10)
	require.True(t, ok)
	assert.Equal(t, 101, p.MessageID)
	_, ok = s.pointer(ctx, "o2", 5)
	assert.False(t, ok)

	assert.Equal(t, []string{"o1", "o2"}, s.customerOrders(ctx, 10), "re-shown order moves to the front")
	assert.Empty(t, s.customerOrders(ctx, 5), "admin cards are not customer orders")
}

func TestSessions_CustomerOrdersAreCapped(t *testing.T) {
	ctx := context.Background()
	s := newSessions(false, nil)
	for i := 0; i < maxChatOrders+3; i++ {
		s.savePointer(ctx, services.OrderMessagePointer{OrderID: string(rune('a' + i)), ChatID: 1, Audience: services.AudienceCustomer, MessageID: i})
	}
	ids := s.customerOrders(ctx, 1)
	require.Len(t, ids, maxChatOrders)
	assert.Equal(t, string(rune('a'+maxChatOrders+2)), ids[0])
}

func TestSessions_ShouldNotify(t *testing.T) {
	ctx := context.Background()
	s := newSessions(false, nil)

	assert.True(t, s.shouldNotify(ctx, "o1", "preparing"))
	assert.False(t, s.shouldNotify(ctx, "o1", "preparing"), "same status twice")
	assert.True(t, s.shouldNotify(ctx, "o1", "ready"))
	assert.True(t, s.shouldNotify(ctx, "o2", "ready"))
}

func TestSessions_FinalStatusesAreForgotten(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := newSessions(false, nil)
	s.now = func() time.Time { return now }

	assert.True(t, s.shouldNotify(ctx, "o1", "served"))
	assert.True(t, s.shouldNotify(ctx, "o2", "preparing"))
	assert.False(t, s.shouldNotify(ctx, "o1", "served"), "still remembered")

	now = now.Add(finalStatusRetention + time.Second)
	assert.True(t, s.shouldNotify(ctx, "o3", "ready"))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.lastStatus, "o1")
	assert.Contains(t, s.lastStatus, "o2", "open orders are kept")
	assert.Contains(t, s.lastStatus, "o3")
}

func TestRefreshOrderCards_DropsLockOfFinishedOrder(t *testing.T) {
	ctx := context.Background()
	b := &Bot{sess: newSessions(false, nil), log: zap.NewNop()}

	b.RefreshOrderCards(ctx, &models.Order{ID: "o1", Status: models.OrderStatusPreparing}, true)
	_, ok := b.orderLocks.Load("o1")
	assert.True(t, ok)

	b.RefreshOrderCards(ctx, &models.Order{ID: "o1", Status: models.OrderStatusServed}, true)
	_, ok = b.orderLocks.Load("o1")
	assert.False(t, ok)
}
