package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/service"
	"github.com/mkrishnan/libraryops/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Test_Memberships_Create_Durations(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name        string
		duration    domain.MembershipDuration
		expectedEnd time.Time
	}{
		{"six_months_default", "", date(2024, 6, 29)},
		{"six_months_explicit", domain.DurationSixMonths, date(2024, 6, 29)},
		{"one_year", domain.DurationOneYear, date(2024, 12, 31)},
		{"two_years", domain.DurationTwoYears, date(2025, 12, 31)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemory()
			svc := service.NewMemberships(st)

			id, err := svc.Create(context.Background(), "Asha Rao", tc.duration, start)
			require.NoError(t, err)

			mem, err := st.Membership(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, start, mem.StartDate)
			assert.Equal(t, tc.expectedEnd, mem.EndDate)
			assert.Equal(t, domain.StatusActive, mem.Status)
		})
	}
}

func Test_Memberships_Create_Validation(t *testing.T) {
	svc := service.NewMemberships(store.NewMemory())

	_, err := svc.Create(context.Background(), "   ", "", date(2024, 1, 1))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.Create(context.Background(), "Asha Rao", "3m", date(2024, 1, 1))
	require.ErrorAs(t, err, &ve)
}

func Test_Memberships_Extend_AnchorsOnStoredEnd(t *testing.T) {
	st := store.NewMemory()
	svc := service.NewMemberships(st)

	// End date 2024-01-01 regardless of today: extension must yield
	// 2024-06-29 even though the membership is long expired.
	id, err := st.CreateMembership(context.Background(), &domain.Membership{
		Name:      "Asha Rao",
		StartDate: date(2023, 7, 5),
		EndDate:   date(2024, 1, 1),
		Status:    domain.StatusActive,
	})
	require.NoError(t, err)

	newEnd, err := svc.Extend(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 29), newEnd)

	mem, err := st.Membership(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 29), mem.EndDate)
}

func Test_Memberships_Extend_Unknown(t *testing.T) {
	svc := service.NewMemberships(store.NewMemory())
	_, err := svc.Extend(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

func Test_Memberships_Cancel(t *testing.T) {
	st := store.NewMemory()
	svc := service.NewMemberships(st)

	id, err := svc.Create(context.Background(), "Asha Rao", "", date(2024, 1, 1))
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), id))

	mem, err := st.Membership(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, mem.Status)

	assert.ErrorIs(t, svc.Cancel(context.Background(), 42), domain.ErrMembershipNotFound)
}

func Test_Memberships_IsActive(t *testing.T) {
	st := store.NewMemory()
	svc := service.NewMemberships(st)

	id, err := svc.Create(context.Background(), "Asha Rao", "", date(2024, 1, 1))
	require.NoError(t, err)

	tests := []struct {
		name     string
		asOf     time.Time
		expected bool
	}{
		{"at_start", date(2024, 1, 1), true},
		{"on_end_date", date(2024, 6, 29), true},
		{"after_end_date", date(2024, 6, 30), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			active, err := svc.IsActive(context.Background(), id, tc.asOf)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, active)
		})
	}

	require.NoError(t, svc.Cancel(context.Background(), id))
	active, err := svc.IsActive(context.Background(), id, date(2024, 1, 2))
	require.NoError(t, err)
	assert.False(t, active, "cancelled membership must not be active even inside its window")
}
