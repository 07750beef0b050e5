package store

import (
	"testing"
	"time"
)

func TestNextOnOrAfter(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	schedules := NewScheduleStore(db)

	past := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	near := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	far := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{far, past, near} {
		if _, err := schedules.Create(ward.ID, "Cleaning", d); err != nil {
			t.Fatalf("create schedule: %v", err)
		}
	}

	got, err := schedules.NextOnOrAfter(ward.ID, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got == nil || !got.Date.Equal(near) {
		t.Fatalf("next date = %v, want %v", got, near)
	}

	// A date on the schedule day itself still matches.
	got, err = schedules.NextOnOrAfter(ward.ID, near)
	if err != nil {
		t.Fatalf("next on day: %v", err)
	}
	if got == nil || !got.Date.Equal(near) {
		t.Fatalf("next on day = %v, want %v", got, near)
	}

	// Nothing upcoming is a nil result, not an error.
	got, err = schedules.NextOnOrAfter(ward.ID, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next past end: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestListBetween(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	other := testWard(t, db)
	schedules := NewScheduleStore(db)

	target := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	schedules.Create(ward.ID, "In window", target)
	schedules.Create(other.ID, "Also in window", target.Add(6*time.Hour))
	schedules.Create(ward.ID, "Day after", target.AddDate(0, 0, 1))

	got, err := schedules.ListBetween(target, target.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 schedules in window, got %d", len(got))
	}
}
