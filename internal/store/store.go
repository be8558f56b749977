// Package store defines the persistence contract the services are built
// against, with a Postgres backend for deployment and an in-memory backend
// for development and tests. Components receive a Store at construction;
// lifecycle belongs to the process entry point.
package store

import (
	"context"
	"time"

	"github.com/mkrishnan/libraryops/internal/domain"
)

// Tx is the operation set available inside one atomic unit. Reads through
// a Tx lock the underlying record for the duration of the unit, so a
// check-then-act sequence over an item or loan cannot interleave with a
// concurrent one on the same key.
type Tx interface {
	ItemForUpdate(ctx context.Context, id int64) (*domain.Item, error)
	SetItemAvailability(ctx context.Context, id int64, available bool) error
	Membership(ctx context.Context, id int64) (*domain.Membership, error)
	CreateLoan(ctx context.Context, loan *domain.Loan) (int64, error)
	LoanForUpdate(ctx context.Context, id int64) (*domain.Loan, error)
	CloseLoan(ctx context.Context, id int64, returnedAt time.Time, fine int64, remarks string) error
}

// Store is the full persistence surface. Single-record reads and writes
// outside WithinTx need no exclusivity beyond a consistent snapshot.
type Store interface {
	CreateItem(ctx context.Context, item *domain.Item) (int64, error)
	Item(ctx context.Context, id int64) (*domain.Item, error)
	SearchAvailableItems(ctx context.Context, title string) ([]domain.Item, error)

	CreateMembership(ctx context.Context, m *domain.Membership) (int64, error)
	Membership(ctx context.Context, id int64) (*domain.Membership, error)
	SetMembershipEnd(ctx context.Context, id int64, end time.Time) error
	SetMembershipStatus(ctx context.Context, id int64, status domain.MembershipStatus) error

	Loan(ctx context.Context, id int64) (*domain.Loan, error)
	OverdueLoans(ctx context.Context, asOf time.Time) ([]domain.Loan, error)

	CreateUser(ctx context.Context, u *domain.User) (int64, error)
	UserByName(ctx context.Context, name string) (*domain.User, error)
	SetUserPassword(ctx context.Context, name, hash string) error

	// WithinTx runs fn as one atomic unit: either every mutation fn makes
	// is applied, or none is. fn returning an error aborts the unit.
	WithinTx(ctx context.Context, fn func(Tx) error) error

	Close()
}
