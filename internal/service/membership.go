package service

import (
	"context"
	"strings"
	"time"

	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/store"
)

// Memberships manages membership validity windows and status.
type Memberships struct {
	store store.Store
}

func NewMemberships(s store.Store) *Memberships {
	return &Memberships{store: s}
}

// Create opens a membership starting at start. The end date is the start
// plus a fixed calendar-day offset per duration (180/365/730 days); an
// empty duration means six months.
func (m *Memberships) Create(ctx context.Context, name string, duration domain.MembershipDuration, start time.Time) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.Validationf("name is mandatory")
	}

	switch duration {
	case "", domain.DurationSixMonths, domain.DurationOneYear, domain.DurationTwoYears:
	default:
		return 0, domain.Validationf("duration must be one of 6m, 1y, 2y")
	}

	return m.store.CreateMembership(ctx, &domain.Membership{
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, duration.Days()),
		Status:    domain.StatusActive,
	})
}

// Extend pushes the stored end date out by 180 days. The extension anchors
// on the stored end date, not on today, so an expired membership extends
// from where it ended.
func (m *Memberships) Extend(ctx context.Context, id int64) (time.Time, error) {
	mem, err := m.store.Membership(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	newEnd := mem.EndDate.AddDate(0, 0, domain.ExtensionDays)
	if err := m.store.SetMembershipEnd(ctx, id, newEnd); err != nil {
		return time.Time{}, err
	}
	return newEnd, nil
}

// Cancel marks the membership cancelled unconditionally.
func (m *Memberships) Cancel(ctx context.Context, id int64) error {
	return m.store.SetMembershipStatus(ctx, id, domain.StatusCancelled)
}

// Get returns the membership with its status derived as of asOf.
func (m *Memberships) Get(ctx context.Context, id int64, asOf time.Time) (*domain.Membership, error) {
	mem, err := m.store.Membership(ctx, id)
	if err != nil {
		return nil, err
	}
	mem.Status = mem.EffectiveStatus(asOf)
	return mem, nil
}

// IsActive reports whether the membership is neither cancelled nor past
// its end date as of asOf.
func (m *Memberships) IsActive(ctx context.Context, id int64, asOf time.Time) (bool, error) {
	mem, err := m.store.Membership(ctx, id)
	if err != nil {
		return false, err
	}
	return mem.EffectiveStatus(asOf) == domain.StatusActive, nil
}
