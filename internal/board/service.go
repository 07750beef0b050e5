package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/realtime"
	"github.com/dulbrich/wardclean/internal/store"
)

var (
	// ErrNotAuthenticated is returned when an anonymous actor attempts an
	// operation reserved for logged-in users, such as creating a session.
	ErrNotAuthenticated = errors.New("board: authentication required")

	// ErrSessionNotFound is returned when an operation targets a session id
	// that does not exist.
	ErrSessionNotFound = errors.New("board: session not found")

	// ErrNoIdentity is returned when a request carries no usable identity.
	ErrNoIdentity = errors.New("board: no identity")
)

// Service owns the live board state for active sessions and drives every
// board mutation: each write goes to the store first, is merged into the
// in-memory state, and is then fanned out over the change feed. The store is
// the durable source of truth; the in-memory copy serves snapshots.
type Service struct {
	sessions     *store.SessionStore
	schedules    *store.ScheduleStore
	wardTasks    *store.WardTaskStore
	sessionTasks *store.SessionTaskStore
	participants *store.ParticipantStore
	viewers      *store.ViewerStore
	users        *store.UserStore
	hub          *realtime.Hub
	logger       *slog.Logger

	mu     sync.Mutex
	boards map[int64]*BoardState
}

func NewService(
	sessions *store.SessionStore,
	schedules *store.ScheduleStore,
	wardTasks *store.WardTaskStore,
	sessionTasks *store.SessionTaskStore,
	participants *store.ParticipantStore,
	viewers *store.ViewerStore,
	users *store.UserStore,
	hub *realtime.Hub,
	logger *slog.Logger,
) *Service {
	return &Service{
		sessions:     sessions,
		schedules:    schedules,
		wardTasks:    wardTasks,
		sessionTasks: sessionTasks,
		participants: participants,
		viewers:      viewers,
		users:        users,
		hub:          hub,
		logger:       logger,
		boards:       make(map[int64]*BoardState),
	}
}

// Snapshot returns a copy of the full board state for a session, loading it
// from the store on first access. Served to every websocket client on
// (re)connect so reconnecting clients resync instead of trusting stale state.
func (s *Service) Snapshot(ctx context.Context, sessionID int64) (*BoardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[sessionID]
	if !ok {
		var err error
		b, err = s.loadBoard(sessionID)
		if err != nil {
			return nil, err
		}
		s.boards[sessionID] = b
	}
	return b.Clone(), nil
}

// loadBoard reads the session's full row-set. Caller holds s.mu.
func (s *Service) loadBoard(sessionID int64) (*BoardState, error) {
	sess, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	tasks, err := s.sessionTasks.ListDetailsBySession(sessionID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participants.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	viewers, err := s.viewers.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	return &BoardState{
		Session:      sess,
		Tasks:        tasks,
		Participants: participants,
		Viewers:      viewers,
	}, nil
}

// withBoard runs fn against the cached board state, if one is loaded. A
// session nobody has snapshotted yet has no live copy to maintain.
func (s *Service) withBoard(sessionID int64, fn func(b *BoardState)) {
	s.mu.Lock()
	if b, ok := s.boards[sessionID]; ok {
		fn(b)
	}
	s.mu.Unlock()
}

func (s *Service) applyTask(d model.SessionTaskDetail, action string) {
	s.withBoard(d.SessionID, func(b *BoardState) { b.UpsertTask(d) })
	s.hub.Broadcast(d.SessionID, realtime.NewMessage("session_task", action, d.SessionID, d.ID, d))
}

func (s *Service) applyParticipant(p model.SessionParticipant, action string) {
	s.withBoard(p.SessionID, func(b *BoardState) { b.UpsertParticipant(p) })
	s.hub.Broadcast(p.SessionID, realtime.NewMessage("participant", action, p.SessionID, p.ID, p))
}

// taskDetail fetches the enriched task row after a state transition.
func (s *Service) taskDetail(id int64) (*model.SessionTaskDetail, error) {
	d, err := s.sessionTasks.GetDetail(id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, store.ErrNotFound
	}
	return d, nil
}

// ClaimTask moves a todo task to doing for the given identity. The store's
// conditional update arbitrates races; the loser gets store.ErrAlreadyClaimed.
func (s *Service) ClaimTask(ctx context.Context, taskID int64, ident identity.Identity) (*model.SessionTaskDetail, error) {
	if !ident.Valid() {
		return nil, ErrNoIdentity
	}

	err := store.WithRetry(ctx, func() error {
		_, err := s.sessionTasks.Claim(taskID, ident, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	d, err := s.taskDetail(taskID)
	if err != nil {
		return nil, err
	}
	s.applyTask(*d, "updated")
	return d, nil
}

// CompleteTask moves a doing task to done; only the assignee may complete.
func (s *Service) CompleteTask(ctx context.Context, taskID int64, ident identity.Identity) (*model.SessionTaskDetail, error) {
	if !ident.Valid() {
		return nil, ErrNoIdentity
	}

	err := store.WithRetry(ctx, func() error {
		_, err := s.sessionTasks.Complete(taskID, ident, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	d, err := s.taskDetail(taskID)
	if err != nil {
		return nil, err
	}
	s.applyTask(*d, "updated")
	return d, nil
}

// CancelTask returns a doing task to todo; only the assignee may cancel.
func (s *Service) CancelTask(ctx context.Context, taskID int64, ident identity.Identity) (*model.SessionTaskDetail, error) {
	if !ident.Valid() {
		return nil, ErrNoIdentity
	}

	err := store.WithRetry(ctx, func() error {
		_, err := s.sessionTasks.Cancel(taskID, ident)
		return err
	})
	if err != nil {
		return nil, err
	}

	d, err := s.taskDetail(taskID)
	if err != nil {
		return nil, err
	}
	s.applyTask(*d, "updated")
	return d, nil
}

// OpenTaskView records presence on a task's detail view. Re-opening refreshes
// the marker rather than duplicating it.
func (s *Service) OpenTaskView(ctx context.Context, sessionID, taskID, participantID int64) (*model.TaskViewer, error) {
	v, err := s.viewers.Upsert(taskID, participantID, time.Now())
	if err != nil {
		return nil, err
	}
	s.withBoard(sessionID, func(b *BoardState) { b.UpsertViewer(*v) })
	s.hub.Broadcast(sessionID, realtime.NewMessage("task_viewer", "created", sessionID, v.ID, v))
	return v, nil
}

// CloseTaskView clears presence when a detail view closes. Closing a view
// with no marker is a no-op.
func (s *Service) CloseTaskView(ctx context.Context, sessionID, taskID, participantID int64) error {
	v, err := s.viewers.Delete(taskID, participantID)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	s.withBoard(sessionID, func(b *BoardState) { b.RemoveViewer(taskID, participantID) })
	s.hub.Broadcast(sessionID, realtime.NewMessage("task_viewer", "deleted", sessionID, v.ID, v))
	return nil
}

// LeaveSession clears all of a participant's viewing markers, used when a
// client connection tears down.
func (s *Service) LeaveSession(ctx context.Context, sessionID, participantID int64) error {
	removed, err := s.viewers.DeleteByParticipant(participantID)
	if err != nil {
		return err
	}
	for _, v := range removed {
		s.withBoard(sessionID, func(b *BoardState) { b.RemoveViewer(v.SessionTaskID, v.ParticipantID) })
		s.hub.Broadcast(sessionID, realtime.NewMessage("task_viewer", "deleted", sessionID, v.ID, v))
	}
	return nil
}

// CompleteSession transitions the session to completed and announces it; the
// session_completed event is the clients' cue for the celebration screen.
func (s *Service) CompleteSession(ctx context.Context, sessionID int64, ident identity.Identity) (*model.CleaningSession, error) {
	if !ident.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	sess, err := s.sessions.Complete(sessionID, time.Now())
	if err != nil {
		return nil, err
	}
	s.withBoard(sessionID, func(b *BoardState) { b.SetSession(sess) })
	s.hub.Broadcast(sessionID, realtime.NewMessage("session", "completed", sessionID, sessionID, sess))
	return sess, nil
}
