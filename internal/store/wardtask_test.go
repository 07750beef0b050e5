package store

import (
	"testing"

	"github.com/dulbrich/wardclean/internal/model"
)

func TestWardTaskPriorityOrdering(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	tasks := NewWardTaskStore(db)

	tasks.Create(ward.ID, WardTaskParams{Title: "Lock up", Priority: model.PriorityDoLast, Active: true})
	tasks.Create(ward.ID, WardTaskParams{Title: "Vacuum", Active: true})
	tasks.Create(ward.ID, WardTaskParams{Title: "Unlock doors", Priority: model.PriorityDoFirst, Active: true})

	list, err := tasks.ListByWard(ward.ID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Unlock doors", "Vacuum", "Lock up"}
	if len(list) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(list))
	}
	for i, title := range want {
		if list[i].Title != title {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Title, title)
		}
	}
}

func TestWardTaskActiveFilter(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	tasks := NewWardTaskStore(db)

	tasks.Create(ward.ID, WardTaskParams{Title: "Current", Active: true})
	retired, _ := tasks.Create(ward.ID, WardTaskParams{Title: "Retired", Active: false})

	active, err := tasks.ListByWard(ward.ID, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Title != "Current" {
		t.Fatalf("active list = %+v", active)
	}

	all, err := tasks.ListByWard(ward.ID, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks total, got %d", len(all))
	}

	// Retiring does not delete the catalog row.
	got, err := tasks.GetByID(retired.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Active {
		t.Errorf("retired task = %+v", got)
	}
}

func TestWardTaskUpdate(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	tasks := NewWardTaskStore(db)

	task, err := tasks.Create(ward.ID, WardTaskParams{Title: "Sweep", Points: 5, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := tasks.Update(task.ID, WardTaskParams{
		Title:       "Sweep and mop",
		Points:      15,
		KidFriendly: true,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Sweep and mop" || updated.Points != 15 || !updated.KidFriendly {
		t.Errorf("updated = %+v", updated)
	}
}
