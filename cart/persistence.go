package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// SlotName is the key the table association is stored under.
const SlotName = "cartTable"

// ErrSlotEmpty is returned by Slot.Get when nothing is stored under the key.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a durable key-value cell.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SlotKey scopes the slot name to one session, e.g. a chat.
func SlotKey(scope string) string {
	if scope == "" {
		return SlotName
	}
	return SlotName + ":" + scope
}

// Persistence saves and restores the table association. It never fails:
// storage errors are logged and treated as "no table remembered".
type Persistence struct {
	slot Slot
	key  string
	log  *zap.Logger
}

func NewPersistence(slot Slot, key string, log *zap.Logger) *Persistence {
	if log == nil {
		log = zap.NewNop()
	}
	if key == "" {
		key = SlotName
	}
	return &Persistence{slot: slot, key: key, log: log}
}

// Load returns the saved association. Missing or malformed data reads as absent.
func (p *Persistence) Load(ctx context.Context) (TableAssociation, bool) {
	raw, err := p.slot.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			p.log.Warn("load table slot", zap.String("key", p.key), zap.Error(err))
		}
		return TableAssociation{}, false
	}
	var t TableAssociation
	if err := json.Unmarshal(raw, &t); err != nil {
		p.log.Warn("discarding malformed table slot", zap.String("key", p.key), zap.Error(err))
		return TableAssociation{}, false
	}
	if t.TableID == "" {
		return TableAssociation{}, false
	}
	return t, true
}

// Save overwrites the slot. Failures are logged and ignored.
func (p *Persistence) Save(ctx context.Context, t TableAssociation) {
	raw, err := json.Marshal(t)
	if err != nil {
		p.log.Warn("encode table slot", zap.Error(err))
		return
	}
	if err := p.slot.Put(ctx, p.key, raw); err != nil {
		p.log.Warn("save table slot", zap.String("key", p.key), zap.Error(err))
	}
}

// Clear removes the slot. Failures are logged and ignored.
func (p *Persistence) Clear(ctx context.Context) {
	if err := p.slot.Delete(ctx, p.key); err != nil && !errors.Is(err, ErrSlotEmpty) {
		p.log.Warn("clear table slot", zap.String("key", p.key), zap.Error(err))
	}
}

// MemorySlot is a Slot kept in process memory.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemorySlot) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
