package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dulbrich/wardclean/internal/database"
	"github.com/dulbrich/wardclean/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "hash", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func testWard(t *testing.T, db *sql.DB) *model.Ward {
	t.Helper()
	w, err := NewWardStore(db).Create("First Ward")
	if err != nil {
		t.Fatalf("create ward: %v", err)
	}
	return w
}

func testSchedule(t *testing.T, db *sql.DB, wardID int64, date time.Time) *model.CleaningSchedule {
	t.Helper()
	sched, err := NewScheduleStore(db).Create(wardID, "Saturday Cleaning", date)
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return sched
}

func testCatalogTask(t *testing.T, db *sql.DB, wardID int64, title string, points int) *model.WardTask {
	t.Helper()
	task, err := NewWardTaskStore(db).Create(wardID, WardTaskParams{
		Title:  title,
		Points: points,
		Active: true,
	})
	if err != nil {
		t.Fatalf("create catalog task: %v", err)
	}
	return task
}

// testSession materializes a session with one todo row per given catalog task,
// returning the session and its task details in board order.
func testSession(t *testing.T, db *sql.DB, wardID int64, taskIDs ...int64) (*model.CleaningSession, []model.SessionTaskDetail) {
	t.Helper()
	creator := testUser(t, db, "creator@example.com")
	sched := testSchedule(t, db, wardID, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC))

	sessions := NewSessionStore(db)
	sess, created, err := sessions.CreateForSchedule(wardID, sched.ID, sched.Name, sched.Date, "ABC234", creator.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !created {
		t.Fatal("expected fresh session")
	}

	tasks := NewSessionTaskStore(db)
	if err := tasks.BulkCreate(sess.ID, taskIDs); err != nil {
		t.Fatalf("bulk create session tasks: %v", err)
	}
	details, err := tasks.ListDetailsBySession(sess.ID)
	if err != nil {
		t.Fatalf("list session tasks: %v", err)
	}
	if len(details) != len(taskIDs) {
		t.Fatalf("expected %d session tasks, got %d", len(taskIDs), len(details))
	}
	return sess, details
}
