package domain

import "time"

// ItemKind distinguishes the two catalog media types.
type ItemKind string

const (
	KindBook  ItemKind = "book"
	KindMovie ItemKind = "movie"
)

// MembershipStatus is the stored status of a membership. Expiry is derived
// from the end date at read time; only cancellation is stored explicitly.
type MembershipStatus string

const (
	StatusActive    MembershipStatus = "active"
	StatusCancelled MembershipStatus = "cancelled"
	StatusExpired   MembershipStatus = "expired"
)

// MembershipDuration selects the validity window at creation time.
type MembershipDuration string

const (
	DurationSixMonths MembershipDuration = "6m"
	DurationOneYear   MembershipDuration = "1y"
	DurationTwoYears  MembershipDuration = "2y"
)

// Days returns the calendar-day offset for the duration. Unrecognized
// values fall back to the six-month default.
func (d MembershipDuration) Days() int {
	switch d {
	case DurationOneYear:
		return 365
	case DurationTwoYears:
		return 730
	default:
		return 180
	}
}

// ExtensionDays is added to the stored end date on every extension,
// independent of the current date.
const ExtensionDays = 180

// LoanPeriodDays caps how far a due date may lie past the issue date.
const LoanPeriodDays = 15

// Item is a single-copy catalog entry. Available is false exactly while an
// open loan references the item; only the loan service flips it.
type Item struct {
	ID        int64    `json:"id"`
	Kind      ItemKind `json:"kind"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Available bool     `json:"available"`
}

// Membership is a time-bounded borrowing privilege.
type Membership struct {
	ID        int64            `json:"membership_no"`
	Name      string           `json:"name"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	Status    MembershipStatus `json:"status"`
}

// EffectiveStatus derives the observable status as of a date: an explicit
// cancellation wins, otherwise the membership is expired once the date
// passes the end date.
func (m *Membership) EffectiveStatus(asOf time.Time) MembershipStatus {
	if m.Status == StatusCancelled {
		return StatusCancelled
	}
	if asOf.After(m.EndDate) {
		return StatusExpired
	}
	return StatusActive
}

// Loan is one issue/return cycle. A nil ReturnedAt means the loan is open;
// closing is terminal.
type Loan struct {
	ID           int64      `json:"id"`
	MembershipID int64      `json:"membership_no"`
	ItemID       int64      `json:"item_id"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnedAt   *time.Time `json:"actual_return_date,omitempty"`
	Fine         int64      `json:"fine"`
	FinePaid     bool       `json:"fine_paid"`
	Remarks      string     `json:"remarks,omitempty"`
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool { return l.ReturnedAt == nil }

// User is an authentication account. The core never handles the plaintext
// credential; only the bcrypt hash is stored.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// IssueRequest is the payload for issuing an item against a membership.
// DueDate is optional; when empty the due date defaults to the issue date
// plus the full loan period.
type IssueRequest struct {
	ItemID       int64  `json:"item_id"`
	MembershipID int64  `json:"membership_no"`
	IssueDate    string `json:"issue_date,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	Remarks      string `json:"remarks,omitempty"`
}

// ReturnRequest is the payload for closing a loan.
type ReturnRequest struct {
	ReturnDate string `json:"return_date,omitempty"`
	FinePaid   bool   `json:"fine_paid"`
	Remarks    string `json:"remarks,omitempty"`
}

// ReturnReceipt reports the outcome of a completed return.
type ReturnReceipt struct {
	LoanID     int64     `json:"loan_id"`
	ItemID     int64     `json:"item_id"`
	ReturnedAt time.Time `json:"actual_return_date"`
	Fine       int64     `json:"fine"`
}
