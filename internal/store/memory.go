package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkrishnan/libraryops/internal/domain"
)

// Memory is a mutex-guarded in-process Store. It backs local development
// when no DB_SOURCE is configured, and the service and handler tests.
// WithinTx holds the store lock for the whole unit, so check-then-act
// sequences serialize exactly like row locks do in the Postgres backend.
type Memory struct {
	mu sync.RWMutex

	items       map[int64]*domain.Item
	memberships map[int64]*domain.Membership
	loans       map[int64]*domain.Loan
	users       map[string]*domain.User

	nextItemID       int64
	nextMembershipID int64
	nextLoanID       int64
	nextUserID       int64
}

func NewMemory() *Memory {
	return &Memory{
		items:       make(map[int64]*domain.Item),
		memberships: make(map[int64]*domain.Membership),
		loans:       make(map[int64]*domain.Loan),
		users:       make(map[string]*domain.User),
	}
}

func (m *Memory) Close() {}

// --- catalog ---

func (m *Memory) CreateItem(_ context.Context, item *domain.Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItemID++
	cp := *item
	cp.ID = m.nextItemID
	cp.Available = true
	m.items[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) Item(_ context.Context, id int64) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.itemLocked(id)
}

func (m *Memory) itemLocked(id int64) (*domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *Memory) SearchAvailableItems(_ context.Context, title string) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(title)
	matches := []domain.Item{}
	for _, it := range m.items {
		if it.Available && strings.Contains(strings.ToLower(it.Title), needle) {
			matches = append(matches, *it)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

// --- memberships ---

func (m *Memory) CreateMembership(_ context.Context, mem *domain.Membership) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMembershipID++
	cp := *mem
	cp.ID = m.nextMembershipID
	m.memberships[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) Membership(_ context.Context, id int64) (*domain.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membershipLocked(id)
}

func (m *Memory) membershipLocked(id int64) (*domain.Membership, error) {
	mem, ok := m.memberships[id]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *Memory) SetMembershipEnd(_ context.Context, id int64, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[id]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	mem.EndDate = end
	return nil
}

func (m *Memory) SetMembershipStatus(_ context.Context, id int64, status domain.MembershipStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[id]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	mem.Status = status
	return nil
}

// --- loans ---

func (m *Memory) Loan(_ context.Context, id int64) (*domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *Memory) OverdueLoans(_ context.Context, asOf time.Time) ([]domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	overdue := []domain.Loan{}
	for _, l := range m.loans {
		if l.ReturnedAt == nil && l.DueDate.Before(asOf) {
			overdue = append(overdue, *l)
		}
	}
	sort.Slice(overdue, func(i, j int) bool {
		if overdue[i].DueDate.Equal(overdue[j].DueDate) {
			return overdue[i].ID < overdue[j].ID
		}
		return overdue[i].DueDate.Before(overdue[j].DueDate)
	})
	return overdue, nil
}

// --- users ---

func (m *Memory) CreateUser(_ context.Context, u *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	cp := *u
	cp.ID = m.nextUserID
	m.users[cp.Name] = &cp
	return cp.ID, nil
}

func (m *Memory) UserByName(_ context.Context, name string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[name]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SetUserPassword(_ context.Context, name, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// --- atomic unit ---

// WithinTx serializes under the store lock and stages mutations, applying
// them only when fn succeeds. A failed unit leaves the store untouched.
func (m *Memory) WithinTx(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{s: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, apply := range tx.pending {
		apply()
	}
	return nil
}

type memTx struct {
	s       *Memory
	pending []func()
}

func (t *memTx) ItemForUpdate(_ context.Context, id int64) (*domain.Item, error) {
	return t.s.itemLocked(id)
}

func (t *memTx) SetItemAvailability(_ context.Context, id int64, available bool) error {
	it, ok := t.s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	t.pending = append(t.pending, func() { it.Available = available })
	return nil
}

func (t *memTx) Membership(_ context.Context, id int64) (*domain.Membership, error) {
	return t.s.membershipLocked(id)
}

func (t *memTx) CreateLoan(_ context.Context, loan *domain.Loan) (int64, error) {
	t.s.nextLoanID++
	cp := *loan
	cp.ID = t.s.nextLoanID
	cp.ReturnedAt = nil
	cp.Fine = 0
	cp.FinePaid = false
	t.pending = append(t.pending, func() { t.s.loans[cp.ID] = &cp })
	return cp.ID, nil
}

func (t *memTx) LoanForUpdate(_ context.Context, id int64) (*domain.Loan, error) {
	l, ok := t.s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (t *memTx) CloseLoan(_ context.Context, id int64, returnedAt time.Time, fineAmount int64, remarks string) error {
	l, ok := t.s.loans[id]
	if !ok || l.ReturnedAt != nil {
		return domain.ErrLoanNotFound
	}
	at := returnedAt
	t.pending = append(t.pending, func() {
		l.ReturnedAt = &at
		l.Fine = fineAmount
		l.FinePaid = true
		l.Remarks = remarks
	})
	return nil
}
