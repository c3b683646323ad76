// Package checkout turns a cart into a submitted order.
package checkout

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"table-order/cart"
	"table-order/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNoTable   = errors.New("no table selected")
	// ErrInProgress is returned while an earlier checkout of the same cart is still running.
	ErrInProgress = errors.New("checkout already in progress")
)

type Method string

const (
	MethodCash    Method = models.PaymentMethodCash
	MethodDigital Method = models.PaymentMethodDigital
)

// Submitter creates an order from a snapshot. *api.Client implements it.
type Submitter interface {
	CreateOrder(ctx context.Context, snap models.OrderSnapshot) (models.Order, error)
}

type Service struct {
	submit   Submitter
	delay    time.Duration
	newTxnID func() string
	log      *zap.Logger

	inflight sync.Map // *cart.Store -> struct{}
}

type Option func(*Service)

// WithPaymentDelay sets how long the simulated gateway takes to approve a digital payment.
func WithPaymentDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithTxnID(fn func() string) Option {
	return func(s *Service) { s.newTxnID = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(submit Submitter, opts ...Option) *Service {
	s := &Service{
		submit:   submit,
		delay:    2 * time.Second,
		newTxnID: NewTxnID,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTxnID returns a mock gateway transaction id like TXN-k3x9q2ab: eight
// lowercase base36 characters.
func NewTxnID() string {
	u := uuid.New()
	id := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(id) < 8 {
		id = strings.Repeat("0", 8-len(id)) + id
	}
	return "TXN-" + id[len(id)-8:]
}

// PlaceOrder submits the cart as it is at call time. On success the cart's
// items are cleared and the table is kept; on any failure the cart is left
// untouched. A second call for the same cart while one is running returns
// ErrInProgress.
func (s *Service) PlaceOrder(ctx context.Context, store *cart.Store, method Method) (models.Order, error) {
	if _, busy := s.inflight.LoadOrStore(store, struct{}{}); busy {
		return models.Order{}, ErrInProgress
	}
	defer s.inflight.Delete(store)

	st := store.State()
	if st.Empty() {
		return models.Order{}, ErrEmptyCart
	}
	if st.Table == nil || st.Table.TableID == "" {
		return models.Order{}, ErrNoTable
	}

	var pay *cart.Payment
	switch method {
	case MethodCash, "":
	case MethodDigital:
		txn, err := s.approve(ctx)
		if err != nil {
			return models.Order{}, err
		}
		pay = &cart.Payment{
			Status:       models.PaymentStatusPaid,
			Method:       models.PaymentMethodDigital,
			Instructions: "Paid via Razorpay (Dummy) - " + txn,
		}
	default:
		return models.Order{}, fmt.Errorf("unknown payment method %q", method)
	}

	snap := cart.Snapshot(st, pay)
	order, err := s.submit.CreateOrder(ctx, snap)
	if err != nil {
		s.log.Warn("order submission failed", zap.String("table_id", snap.TableID), zap.Error(err))
		return models.Order{}, fmt.Errorf("submit order: %w", err)
	}
	store.ClearItems()
	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("table_id", snap.TableID),
		zap.String("method", string(method)),
		zap.String("total", snap.Total.StringFixed(2)),
	)
	return order, nil
}

func (s *Service) approve(ctx context.Context) (string, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return s.newTxnID(), nil
}
