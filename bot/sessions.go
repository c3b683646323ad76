package bot

import (
	"context"
	"sort"
	"sync"
	"time"

	"table-order/services"

	"go.uber.org/zap"
)

const (
	maxChatOrders = 10
	// finalStatusRetention is how long a served or canceled order is remembered
	// for notification de-duplication.
	finalStatusRetention = 10 * time.Minute
)

type seenStatus struct {
	status string
	at     time.Time
}

type loginFailure struct {
	count int
	until time.Time
}

// sessions keeps admin logins, login throttling, order card pointers and the
// last status each diner was told about. When persistent, every write also goes
// to Postgres through services and reads prefer the database.
type sessions struct {
	persistent bool
	log        *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	admins     map[int64]bool
	failures   map[int64]loginFailure
	pointers   map[string]map[int64]services.OrderMessagePointer
	chatOrders map[int64][]string
	lastStatus map[string]seenStatus
}

func newSessions(persistent bool, log *zap.Logger) *sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &sessions{
		persistent: persistent,
		log:        log,
		now:        time.Now,
		admins:     make(map[int64]bool),
		failures:   make(map[int64]loginFailure),
		pointers:   make(map[string]map[int64]services.OrderMessagePointer),
		chatOrders: make(map[int64][]string),
		lastStatus: make(map[string]seenStatus),
	}
}

func (s *sessions) loadAdmins(ctx context.Context) {
	if !s.persistent {
		return
	}
	ids, err := services.AdminChats(ctx)
	if err != nil {
		s.log.Warn("load admin sessions", zap.Error(err))
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		s.admins[id] = true
	}
	s.mu.Unlock()
}

func (s *sessions) isAdmin(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admins[chatID]
}

func (s *sessions) setAdmin(ctx context.Context, chatID int64) {
	s.mu.Lock()
	s.admins[chatID] = true
	s.mu.Unlock()
	if s.persistent {
		if err := services.SetAdminSession(ctx, chatID); err != nil {
			s.log.Warn("save admin session", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (s *sessions) dropAdmin(ctx context.Context, chatID int64) {
	s.mu.Lock()
	delete(s.admins, chatID)
	s.mu.Unlock()
	if s.persistent {
		if err := services.DeleteAdminSession(ctx, chatID); err != nil {
			s.log.Warn("delete admin session", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (s *sessions) adminChats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.admins))
	for id := range s.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// loginWait returns the seconds left before chatID may try the admin password again.
func (s *sessions) loginWait(ctx context.Context, chatID int64) int {
	if s.persistent {
		wait, err := services.LoginThrottleWaitSeconds(ctx, chatID, services.ThrottleRoleAdmin)
		if err == nil {
			return wait
		}
		s.log.Warn("read login throttle", zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return services.WaitSecondsUntil(s.failures[chatID].until, s.now())
}

func (s *sessions) loginFailed(ctx context.Context, chatID int64) {
	s.mu.Lock()
	f := s.failures[chatID]
	f.count++
	f.until = s.now().Add(time.Duration(services.CooldownSecondsForFailCount(f.count)) * time.Second)
	s.failures[chatID] = f
	s.mu.Unlock()
	if s.persistent {
		if err := services.RecordLoginFailed(ctx, chatID, services.ThrottleRoleAdmin); err != nil {
			s.log.Warn("record login failure", zap.Error(err))
		}
	}
}

func (s *sessions) loginSucceeded(ctx context.Context, chatID int64) {
	s.mu.Lock()
	delete(s.failures, chatID)
	s.mu.Unlock()
	if s.persistent {
		if err := services.RecordLoginSuccess(ctx, chatID, services.ThrottleRoleAdmin); err != nil {
			s.log.Warn("record login success", zap.Error(err))
		}
	}
}

func (s *sessions) savePointer(ctx context.Context, p services.OrderMessagePointer) {
	s.mu.Lock()
	byChat := s.pointers[p.OrderID]
	if byChat == nil {
		byChat = make(map[int64]services.OrderMessagePointer)
		s.pointers[p.OrderID] = byChat
	}
	byChat[p.ChatID] = p
	if p.Audience == services.AudienceCustomer {
		ids := s.chatOrders[p.ChatID]
		for i, id := range ids {
			if id == p.OrderID {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		ids = append(ids, p.OrderID)
		if len(ids) > maxChatOrders {
			ids = ids[len(ids)-maxChatOrders:]
		}
		s.chatOrders[p.ChatID] = ids
	}
	s.mu.Unlock()
	if s.persistent {
		if err := services.UpsertOrderMessagePointer(ctx, p); err != nil {
			s.log.Warn("save order card pointer", zap.String("order_id", p.OrderID), zap.Error(err))
		}
	}
}

func (s *sessions) pointer(ctx context.Context, orderID string, chatID int64) (services.OrderMessagePointer, bool) {
	for _, p := range s.orderPointers(ctx, orderID) {
		if p.ChatID == chatID {
			return p, true
		}
	}
	return services.OrderMessagePointer{}, false
}

func (s *sessions) orderPointers(ctx context.Context, orderID string) []services.OrderMessagePointer {
	if s.persistent {
		ptrs, err := services.OrderMessagePointers(ctx, orderID)
		if err == nil {
			return ptrs
		}
		s.log.Warn("read order card pointers", zap.String("order_id", orderID), zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]services.OrderMessagePointer, 0, len(s.pointers[orderID]))
	for _, p := range s.pointers[orderID] {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ChatID < res[j].ChatID })
	return res
}

// customerOrders returns the orders placed from chatID, newest first.
func (s *sessions) customerOrders(ctx context.Context, chatID int64) []string {
	if s.persistent {
		ids, err := services.ChatOrderIDs(ctx, chatID, services.AudienceCustomer, maxChatOrders)
		if err == nil {
			return ids
		}
		s.log.Warn("read chat orders", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.chatOrders[chatID]
	res := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		res = append(res, ids[i])
	}
	return res
}

// shouldNotify reports whether the diner has not been told about this status yet.
// Served and canceled orders are forgotten after finalStatusRetention.
func (s *sessions) shouldNotify(ctx context.Context, orderID, status string) bool {
	s.mu.Lock()
	now := s.now()
	for id, seen := range s.lastStatus {
		if services.IsFinalStatus(seen.status) && now.Sub(seen.at) > finalStatusRetention {
			delete(s.lastStatus, id)
		}
	}
	prev, seen := s.lastStatus[orderID]
	s.lastStatus[orderID] = seenStatus{status: status, at: now}
	s.mu.Unlock()
	if seen && prev.status == status {
		return false
	}
	if s.persistent {
		sent, err := services.SentOrderStatusNotifyWithin30s(ctx, orderID, status)
		if err != nil {
			s.log.Warn("check status notify", zap.Error(err))
			return true
		}
		return !sent
	}
	return true
}

func (s *sessions) recordNotify(ctx context.Context, chatID int64, orderID, status, text string) {
	if !s.persistent {
		return
	}
	if err := services.SaveOutboundMessage(ctx, chatID, text, services.StatusNotifyMeta(orderID, status)); err != nil {
		s.log.Warn("save outbound message", zap.Error(err))
	}
}
