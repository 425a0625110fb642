package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memStore is a shared in-memory backing store. The unit of work buffers
// writes and applies them under the store lock with a version check, so
// concurrent service calls exercise the same lost-update semantics as the
// real database.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]ledger.Order
	payments map[uuid.UUID]ledger.PaymentTransaction
	history  []ledger.PaymentHistoryEntry
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[uuid.UUID]ledger.Order),
		payments: make(map[uuid.UUID]ledger.PaymentTransaction),
	}
}

func (s *memStore) seedOrder(o *ledger.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *o
	copied.ClearDomainEvents()
	s.orders[o.ID] = copied
}

func (s *memStore) seedPayment(p *ledger.PaymentTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = *p
}

func (s *memStore) getOrder(id uuid.UUID) (ledger.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *memStore) getPayment(id uuid.UUID) (ledger.PaymentTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

func (s *memStore) historyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// memTx buffers writes until commit
type memTx struct {
	store          *memStore
	savedOrders    []ledger.Order
	lockedOrders   []ledger.Order
	savedPayments  []ledger.PaymentTransaction
	appendedEvents []ledger.PaymentHistoryEntry
}

func (tx *memTx) commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, o := range tx.lockedOrders {
		stored, ok := tx.store.orders[o.ID]
		if ok && stored.Version != o.Version-1 {
			return shared.ErrConcurrencyConflict
		}
	}
	for _, o := range tx.savedOrders {
		o.ClearDomainEvents()
		tx.store.orders[o.ID] = o
	}
	for _, o := range tx.lockedOrders {
		o.ClearDomainEvents()
		tx.store.orders[o.ID] = o
	}
	for _, p := range tx.savedPayments {
		tx.store.payments[p.ID] = p
	}
	tx.store.history = append(tx.store.history, tx.appendedEvents...)
	return nil
}

// memUnitOfWork runs fn against transaction-scoped repositories and commits
// the buffered writes only when fn succeeds
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Execute(_ context.Context, fn func(repos ledger.TxRepositories) error) error {
	tx := &memTx{store: u.store}
	repos := ledger.TxRepositories{
		Orders:   &memOrderRepo{store: u.store, tx: tx},
		Payments: &memPaymentRepo{store: u.store, tx: tx},
		History:  &memHistoryRepo{store: u.store, tx: tx},
	}
	if err := fn(repos); err != nil {
		return err
	}
	return tx.commit()
}

// memOrderRepo reads from the store and, when bound to a transaction, buffers
// writes on it. With a nil tx it writes through directly.
type memOrderRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok || o.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	copied := o
	return &copied, nil
}

func (r *memOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*ledger.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, o := range r.store.orders {
		if o.OrderNumber == orderNumber && !o.IsDeleted() {
			copied := o
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindAll(_ context.Context, _ ledger.OrderFilter) ([]ledger.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.Order
	for _, o := range r.store.orders {
		if !o.IsDeleted() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (r *memOrderRepo) FindOverdue(_ context.Context, _ ledger.OrderFilter) ([]ledger.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.Order
	now := time.Now()
	for _, o := range r.store.orders {
		if o.IsDeleted() {
			continue
		}
		if ledger.DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, now) == ledger.PaymentStatusOverdue {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) Save(_ context.Context, order *ledger.Order) error {
	if r.tx != nil {
		r.tx.savedOrders = append(r.tx.savedOrders, *order)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *order
	copied.ClearDomainEvents()
	r.store.orders[order.ID] = copied
	return nil
}

func (r *memOrderRepo) SaveWithLock(_ context.Context, order *ledger.Order) error {
	if r.tx != nil {
		r.tx.lockedOrders = append(r.tx.lockedOrders, *order)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.orders[order.ID]
	if ok && stored.Version != order.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *order
	copied.ClearDomainEvents()
	r.store.orders[order.ID] = copied
	return nil
}

func (r *memOrderRepo) Count(_ context.Context, _ ledger.OrderFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, o := range r.store.orders {
		if !o.IsDeleted() {
			n++
		}
	}
	return n, nil
}

func (r *memOrderRepo) CountByPaymentStatus(_ context.Context) (map[ledger.PaymentStatus]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := make(map[ledger.PaymentStatus]int64)
	for _, o := range r.store.orders {
		if !o.IsDeleted() {
			counts[o.PaymentStatus]++
		}
	}
	return counts, nil
}

func (r *memOrderRepo) SumTotals(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	revenue, received := decimal.Zero, decimal.Zero
	for _, o := range r.store.orders {
		if !o.IsDeleted() {
			revenue = revenue.Add(o.TotalAmount)
			received = received.Add(o.AmountReceived)
		}
	}
	return revenue, received, nil
}

func (r *memOrderRepo) SumPending(_ context.Context) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pending := decimal.Zero
	for _, o := range r.store.orders {
		if !o.IsDeleted() && o.BalanceAmount.IsPositive() {
			pending = pending.Add(o.BalanceAmount)
		}
	}
	return pending, nil
}

func (r *memOrderRepo) SumOverdue(_ context.Context) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	overdue := decimal.Zero
	now := time.Now()
	for _, o := range r.store.orders {
		if o.IsDeleted() {
			continue
		}
		if ledger.DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, now) == ledger.PaymentStatusOverdue {
			overdue = overdue.Add(o.BalanceAmount)
		}
	}
	return overdue, nil
}

func (r *memOrderRepo) ExistsByOrderNumber(_ context.Context, orderNumber string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, o := range r.store.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

type memPaymentRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.PaymentTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[id]
	if !ok || p.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (r *memPaymentRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]ledger.PaymentTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.PaymentTransaction
	for _, p := range r.store.payments {
		if p.OrderID == orderID && !p.IsDeleted() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

func (r *memPaymentRepo) FindAll(_ context.Context, _ ledger.PaymentFilter) ([]ledger.PaymentTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.PaymentTransaction
	for _, p := range r.store.payments {
		if !p.IsDeleted() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Save(_ context.Context, payment *ledger.PaymentTransaction) error {
	if r.tx != nil {
		r.tx.savedPayments = append(r.tx.savedPayments, *payment)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) SumByOrder(_ context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.store.payments {
		if p.OrderID == orderID && !p.IsDeleted() {
			sum = sum.Add(p.AmountPaid)
		}
	}
	return sum, nil
}

func (r *memPaymentRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, p := range r.store.payments {
		if !p.IsDeleted() && p.PaymentDate.After(since) {
			n++
		}
	}
	return n, nil
}

type memHistoryRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memHistoryRepo) Append(_ context.Context, entry *ledger.PaymentHistoryEntry) error {
	if r.tx != nil {
		r.tx.appendedEvents = append(r.tx.appendedEvents, *entry)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.history = append(r.store.history, *entry)
	return nil
}

func (r *memHistoryRepo) FindByPayment(_ context.Context, paymentID uuid.UUID) ([]ledger.PaymentHistoryEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.PaymentHistoryEntry
	for _, e := range r.store.history {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	return out, nil
}

func (r *memHistoryRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]ledger.PaymentHistoryEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []ledger.PaymentHistoryEntry
	for _, e := range r.store.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	return out, nil
}

// capturingEventBus records every published event
type capturingEventBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (b *capturingEventBus) Publish(_ context.Context, events ...shared.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

func (b *capturingEventBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.EventType())
	}
	return types
}
