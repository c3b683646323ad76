package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type brokenSlot struct{}

func (brokenSlot) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (brokenSlot) Put(context.Context, string, []byte) error   { return errors.New("disk on fire") }
func (brokenSlot) Delete(context.Context, string) error        { return errors.New("disk on fire") }

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()

	first := New(ctx, NewPersistence(slot, SlotKey("42"), nil))
	first.SetTable(ctx, "T1", "t-1")
	first.AddItem(item("A", 10), 1)

	raw, err := slot.Get(ctx, "cartTable:42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tableNumber":"T1","tableId":"t-1"}`, string(raw))

	second := New(ctx, NewPersistence(slot, SlotKey("42"), nil))
	tbl, ok := second.Table()
	require.True(t, ok)
	assert.Equal(t, TableAssociation{TableNumber: "T1", TableID: "t-1"}, tbl)
	assert.Empty(t, second.Lines(), "lines are not persisted")

	other := New(ctx, NewPersistence(slot, SlotKey("43"), nil))
	_, ok = other.Table()
	assert.False(t, ok)
}

func TestPersistence_LoadDiscardsBadValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"wrong shape", `["T1","t-1"]`},
		{"missing table id", `{"tableNumber":"T1"}`},
		{"empty table id", `{"tableNumber":"T1","tableId":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			slot := NewMemorySlot()
			require.NoError(t, slot.Put(ctx, SlotName, []byte(tt.raw)))

			s := New(ctx, NewPersistence(slot, "", nil))
			_, ok := s.Table()
			assert.False(t, ok)
		})
	}
}

func TestPersistence_StorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	p := NewPersistence(brokenSlot{}, "", zap.New(core))

	s := New(ctx, p)
	_, ok := s.Table()
	assert.False(t, ok)

	s.SetTable(ctx, "T2", "t-2")
	tbl, ok := s.Table()
	require.True(t, ok, "in-memory state survives a failed write")
	assert.Equal(t, "t-2", tbl.TableID)

	s.ClearTable(ctx)
	_, ok = s.Table()
	assert.False(t, ok)

	assert.Equal(t, 1, logs.FilterMessage("load table slot").Len())
	assert.Equal(t, 1, logs.FilterMessage("save table slot").Len())
	assert.Equal(t, 1, logs.FilterMessage("clear table slot").Len())
}

func TestPersistence_MissingSlotIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := NewPersistence(NewMemorySlot(), "", zap.New(core))

	_, ok := p.Load(context.Background())
	assert.False(t, ok)
	p.Clear(context.Background())
	assert.Zero(t, logs.Len())
}

func TestMemorySlot_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySlot()
	v := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", v))
	v[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'z'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "cartTable", SlotKey(""))
	assert.Equal(t, "cartTable:1001", SlotKey("1001"))
}
