package store

import (
	"errors"
	"testing"
)

func TestAddMemberUpsertsRole(t *testing.T) {
	db := setupTestDB(t)
	ward := testWard(t, db)
	user := testUser(t, db, "clerk@example.com")
	wards := NewWardStore(db)

	m, err := wards.AddMember(ward.ID, user.ID, "member")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if m.Role != "member" {
		t.Errorf("role = %q, want member", m.Role)
	}

	// Re-adding promotes in place instead of duplicating.
	m, err = wards.AddMember(ward.ID, user.ID, "admin")
	if err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	if m.Role != "admin" {
		t.Errorf("role = %q, want admin", m.Role)
	}

	list, err := wards.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 ward, got %d", len(list))
	}
}

func TestSetPrimary(t *testing.T) {
	db := setupTestDB(t)
	wards := NewWardStore(db)
	user := testUser(t, db, "mover@example.com")

	first := testWard(t, db)
	second, err := wards.Create("Second Ward")
	if err != nil {
		t.Fatalf("create second ward: %v", err)
	}
	wards.AddMember(first.ID, user.ID, "member")
	wards.AddMember(second.ID, user.ID, "member")

	if err := wards.SetPrimary(user.ID, second.ID); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	list, err := wards.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Primary sorts first.
	if list[0].ID != second.ID {
		t.Errorf("first listed ward = %d, want primary %d", list[0].ID, second.ID)
	}

	// Switching primary clears the old one.
	if err := wards.SetPrimary(user.ID, first.ID); err != nil {
		t.Fatalf("switch primary: %v", err)
	}
	m, err := wards.GetMember(second.ID, user.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m.IsPrimary {
		t.Error("old primary should be cleared")
	}

	// Setting primary on a ward the user is not in is not found.
	third, _ := wards.Create("Third Ward")
	if err := wards.SetPrimary(user.ID, third.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
