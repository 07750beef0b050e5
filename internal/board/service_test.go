package board

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dulbrich/wardclean/internal/database"
	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/realtime"
	"github.com/dulbrich/wardclean/internal/store"
)

type fixture struct {
	db      *sql.DB
	svc     *Service
	wardID  int64
	adminID int64
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	hub := realtime.NewHub(logger)
	svc := NewService(
		store.NewSessionStore(db),
		store.NewScheduleStore(db),
		store.NewWardTaskStore(db),
		store.NewSessionTaskStore(db),
		store.NewParticipantStore(db),
		store.NewViewerStore(db),
		store.NewUserStore(db),
		hub, logger,
	)

	ward, err := store.NewWardStore(db).Create("Test Ward")
	if err != nil {
		t.Fatalf("create ward: %v", err)
	}
	admin, err := store.NewUserStore(db).Create("admin@example.com", "hash", "Admin")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &fixture{db: db, svc: svc, wardID: ward.ID, adminID: admin.ID}
}

func (f *fixture) addCatalogTask(t *testing.T, title string, points int) {
	t.Helper()
	_, err := store.NewWardTaskStore(f.db).Create(f.wardID, store.WardTaskParams{Title: title, Points: points, Active: true})
	if err != nil {
		t.Fatalf("create catalog task: %v", err)
	}
}

func (f *fixture) addSchedule(t *testing.T, date time.Time) {
	t.Helper()
	if _, err := store.NewScheduleStore(f.db).Create(f.wardID, "Saturday Cleaning", date); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
}

func (f *fixture) bootstrap(t *testing.T) *model.CleaningSession {
	t.Helper()
	sess, created, err := f.svc.Bootstrap(context.Background(), f.wardID, nil, identity.Authenticated(f.adminID))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if sess == nil || !created {
		t.Fatalf("expected fresh session, got %+v created=%v", sess, created)
	}
	return sess
}

func TestBootstrapMaterializesTasks(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Vacuum chapel", 10)
	f.addCatalogTask(t, "Clean bathrooms", 15)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 3))

	sess := f.bootstrap(t)

	state, err := f.svc.Snapshot(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(state.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(state.Tasks))
	}
	for _, d := range state.Tasks {
		if d.Status != model.TaskTodo {
			t.Errorf("task %d status = %q, want todo", d.ID, d.Status)
		}
	}
	if sess.ShareCode == "" {
		t.Error("session should carry a share code")
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Vacuum chapel", 10)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 3))

	first := f.bootstrap(t)

	// A later bootstrap, even anonymous, converges on the existing session.
	second, created, err := f.svc.Bootstrap(context.Background(), f.wardID, nil, identity.Anonymous("anon_12345678"))
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if created {
		t.Error("second bootstrap should not create")
	}
	if second.ID != first.ID {
		t.Errorf("second id = %d, want %d", second.ID, first.ID)
	}
}

func TestBootstrapRepairsEmptyBoard(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Vacuum chapel", 10)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 3))

	// A session left behind by a bootstrap that died before copying the
	// catalog: the row exists, the board is empty.
	sched, err := store.NewScheduleStore(f.db).NextOnOrAfter(f.wardID, time.Now().UTC().AddDate(0, 0, -1))
	if err != nil || sched == nil {
		t.Fatalf("schedule: %v %v", sched, err)
	}
	orphan, created, err := store.NewSessionStore(f.db).CreateForSchedule(
		f.wardID, sched.ID, sched.Name, sched.Date, "REPAIR", f.adminID,
	)
	if err != nil || !created {
		t.Fatalf("create orphan session: created=%v err=%v", created, err)
	}

	sess, created, err := f.svc.Bootstrap(context.Background(), f.wardID, nil, identity.Anonymous("anon_11112222"))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if created || sess.ID != orphan.ID {
		t.Fatalf("expected reuse of session %d, got %d created=%v", orphan.ID, sess.ID, created)
	}

	state, err := f.svc.Snapshot(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(state.Tasks) != 1 {
		t.Fatalf("expected repaired board with 1 task, got %d", len(state.Tasks))
	}
	if state.Tasks[0].Status != model.TaskTodo {
		t.Errorf("status = %q, want todo", state.Tasks[0].Status)
	}
}

func TestBootstrapNoScheduleIsEmptyState(t *testing.T) {
	f := setupService(t)

	sess, created, err := f.svc.Bootstrap(context.Background(), f.wardID, nil, identity.Authenticated(f.adminID))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if sess != nil || created {
		t.Errorf("expected empty state, got %+v created=%v", sess, created)
	}
}

func TestBootstrapAnonymousCannotCreate(t *testing.T) {
	f := setupService(t)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 3))

	_, _, err := f.svc.Bootstrap(context.Background(), f.wardID, nil, identity.Anonymous("anon_87654321"))
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestClaimCompleteFlow(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Mop gym floor", 25)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 1))
	sess := f.bootstrap(t)

	state, err := f.svc.Snapshot(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	taskID := state.Tasks[0].ID
	guest := identity.Anonymous("anon_facefeed")

	claimed, err := f.svc.ClaimTask(context.Background(), taskID, guest)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != model.TaskDoing {
		t.Errorf("status = %q, want doing", claimed.Status)
	}

	// The loser of the race gets a conflict.
	if _, err := f.svc.ClaimTask(context.Background(), taskID, identity.Authenticated(f.adminID)); !errors.Is(err, store.ErrAlreadyClaimed) {
		t.Errorf("second claim err = %v, want ErrAlreadyClaimed", err)
	}

	done, err := f.svc.CompleteTask(context.Background(), taskID, guest)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.TaskDone || done.PointsAwarded != 25 {
		t.Errorf("done = %+v", done)
	}

	// The cached board reflects the transition.
	state, err = f.svc.Snapshot(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("snapshot after: %v", err)
	}
	if state.Tasks[0].Status != model.TaskDone {
		t.Errorf("cached status = %q, want done", state.Tasks[0].Status)
	}
}

func TestCancelReleasesClaim(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Wipe windows", 5)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 1))
	sess := f.bootstrap(t)

	state, _ := f.svc.Snapshot(context.Background(), sess.ID)
	taskID := state.Tasks[0].ID
	guest := identity.Anonymous("anon_31337abc")

	if _, err := f.svc.ClaimTask(context.Background(), taskID, guest); err != nil {
		t.Fatalf("claim: %v", err)
	}
	cancelled, err := f.svc.CancelTask(context.Background(), taskID, guest)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.TaskTodo || cancelled.AssignedTo != nil || cancelled.AssignedToTempUser != "" {
		t.Errorf("cancelled = %+v", cancelled)
	}

	// Someone else can now pick it up.
	if _, err := f.svc.ClaimTask(context.Background(), taskID, identity.Authenticated(f.adminID)); err != nil {
		t.Errorf("reclaim: %v", err)
	}
}

func TestJoinAndPresence(t *testing.T) {
	f := setupService(t)
	f.addCatalogTask(t, "Dust shelves", 5)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 1))
	sess := f.bootstrap(t)

	guest := identity.Anonymous("anon_10203040")
	p, err := f.svc.Join(context.Background(), sess.ID, guest)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.DisplayName == "" {
		t.Error("guest should get a generated display name")
	}

	// Repeat join reuses the row.
	again, err := f.svc.Join(context.Background(), sess.ID, guest)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("rejoin id = %d, want %d", again.ID, p.ID)
	}

	state, _ := f.svc.Snapshot(context.Background(), sess.ID)
	taskID := state.Tasks[0].ID

	if _, err := f.svc.OpenTaskView(context.Background(), sess.ID, taskID, p.ID); err != nil {
		t.Fatalf("open view: %v", err)
	}
	state, _ = f.svc.Snapshot(context.Background(), sess.ID)
	if got := state.ViewersForTask(taskID); len(got) != 1 || got[0].ID != p.ID {
		t.Fatalf("viewers = %+v, want just the guest", got)
	}

	if err := f.svc.CloseTaskView(context.Background(), sess.ID, taskID, p.ID); err != nil {
		t.Fatalf("close view: %v", err)
	}
	state, _ = f.svc.Snapshot(context.Background(), sess.ID)
	if got := state.ViewersForTask(taskID); len(got) != 0 {
		t.Fatalf("viewers after close = %+v, want none", got)
	}

	// Closing again is a no-op.
	if err := f.svc.CloseTaskView(context.Background(), sess.ID, taskID, p.ID); err != nil {
		t.Errorf("double close: %v", err)
	}
}

func TestJoinUsesProfileName(t *testing.T) {
	f := setupService(t)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 1))
	sess := f.bootstrap(t)

	p, err := f.svc.Join(context.Background(), sess.ID, identity.Authenticated(f.adminID))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.DisplayName != "Admin" {
		t.Errorf("display name = %q, want Admin", p.DisplayName)
	}
	if !p.IsAuthenticated {
		t.Error("member participant should be marked authenticated")
	}
}

func TestCompleteSessionRequiresAuth(t *testing.T) {
	f := setupService(t)
	f.addSchedule(t, time.Now().UTC().AddDate(0, 0, 1))
	sess := f.bootstrap(t)

	if _, err := f.svc.CompleteSession(context.Background(), sess.ID, identity.Anonymous("anon_55556666")); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("guest complete err = %v, want ErrNotAuthenticated", err)
	}

	done, err := f.svc.CompleteSession(context.Background(), sess.ID, identity.Authenticated(f.adminID))
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if done.Status != model.SessionCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
}
