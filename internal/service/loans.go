package service

import (
	"context"
	"time"

	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/fine"
	"github.com/mkrishnan/libraryops/internal/store"
)

// Loans is the circulation state machine. A loan is OPEN from issue until
// its single, terminal close at return time. Loans exclusively owns item
// availability: both transitions flip it inside the same atomic unit that
// mutates the loan record, so two concurrent issues of one item, or a
// double return, cannot both succeed.
type Loans struct {
	store store.Store
}

func NewLoans(s store.Store) *Loans {
	return &Loans{store: s}
}

// Issue creates an open loan for an available item against an existing
// membership. The due date defaults to the issue date plus 15 days; a
// requested due date may only shorten that window. Precondition failures
// leave the store untouched.
//
// An expired or cancelled membership does not block issuing; callers that
// want stricter gating consult Memberships.IsActive first.
func (s *Loans) Issue(ctx context.Context, itemID, membershipID int64, issueDate time.Time, requestedDue *time.Time, remarks string) (int64, error) {
	due := issueDate.AddDate(0, 0, domain.LoanPeriodDays)
	if requestedDue != nil {
		if requestedDue.After(due) {
			return 0, domain.Validationf("return date cannot exceed 15 days")
		}
		due = *requestedDue
	}

	var loanID int64
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		item, err := tx.ItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Available {
			return domain.ErrItemUnavailable
		}
		if _, err := tx.Membership(ctx, membershipID); err != nil {
			return err
		}

		loanID, err = tx.CreateLoan(ctx, &domain.Loan{
			MembershipID: membershipID,
			ItemID:       itemID,
			IssueDate:    issueDate,
			DueDate:      due,
			Remarks:      remarks,
		})
		if err != nil {
			return err
		}
		return tx.SetItemAvailability(ctx, itemID, false)
	})
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// Return closes an open loan. The fine is computed from the due date; an
// unsettled fine rejects the whole return and the loan stays open. On
// success the loan closes, fine-paid records true even when nothing was
// owed, and the item becomes available again, all in one atomic unit.
// Returning a closed or unknown loan is ErrLoanNotFound.
func (s *Loans) Return(ctx context.Context, loanID int64, returnedAt time.Time, finePaid bool, remarks string) (*domain.ReturnReceipt, error) {
	var receipt *domain.ReturnReceipt
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		loan, err := tx.LoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Open() {
			return domain.ErrLoanNotFound
		}

		owed := fine.Amount(loan.DueDate, returnedAt)
		if owed > 0 && !finePaid {
			return &domain.UnpaidFineError{Fine: owed}
		}

		if err := tx.CloseLoan(ctx, loanID, returnedAt, owed, remarks); err != nil {
			return err
		}
		if err := tx.SetItemAvailability(ctx, loan.ItemID, true); err != nil {
			return err
		}

		receipt = &domain.ReturnReceipt{
			LoanID:     loanID,
			ItemID:     loan.ItemID,
			ReturnedAt: returnedAt,
			Fine:       owed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Overdue lists open loans whose due date lies before asOf, oldest due
// first. Read-only: fines materialize at return time, never here.
func (s *Loans) Overdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	return s.store.OverdueLoans(ctx, asOf)
}
