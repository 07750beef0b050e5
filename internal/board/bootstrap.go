package board

import (
	"context"
	"time"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/sharecode"
)

// Bootstrap finds or creates the session an actor should land on.
//
// With an explicit session id, that session is loaded; if it is gone, the
// lookup falls through to the schedule path. Otherwise the ward's earliest
// schedule entry on or after today decides: no entry means no session — a
// legitimate empty state reported as (nil, false, nil), not an error.
//
// Creation requires an authenticated actor and copies every active catalog
// task into fresh todo rows. The schedule-id uniqueness constraint makes the
// whole call idempotent: concurrent bootstraps for the same entry converge on
// one session, and only the winner materializes tasks.
func (s *Service) Bootstrap(ctx context.Context, wardID int64, sessionID *int64, ident identity.Identity) (*model.CleaningSession, bool, error) {
	if sessionID != nil {
		sess, err := s.sessions.GetByID(*sessionID)
		if err != nil {
			return nil, false, err
		}
		if sess != nil {
			return sess, false, nil
		}
	}

	sched, err := s.schedules.NextOnOrAfter(wardID, startOfDay(time.Now().UTC()))
	if err != nil {
		return nil, false, err
	}
	if sched == nil {
		return nil, false, nil
	}

	existing, err := s.sessions.GetBySchedule(sched.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.repairEmptyBoard(existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if !ident.IsAuthenticated() {
		return nil, false, ErrNotAuthenticated
	}

	sess, created, err := s.sessions.CreateForSchedule(
		wardID, sched.ID, sched.Name, sched.Date, sharecode.New(), ident.UserID,
	)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost the creation race; the winner materializes, but it may not
		// have finished (or may have failed), so repair rather than assume.
		if err := s.repairEmptyBoard(sess); err != nil {
			return nil, false, err
		}
		return sess, false, nil
	}

	n, err := s.materialize(sess.ID, sess.WardID)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("session materialized",
		"session_id", sess.ID, "schedule_id", sched.ID, "ward_id", wardID, "tasks", n)
	return sess, true, nil
}

// materialize copies the ward's active catalog onto the session board.
// Keyed inserts make it safe to run again for a session whose earlier
// bootstrap failed partway.
func (s *Service) materialize(sessionID, wardID int64) (int, error) {
	tasks, err := s.wardTasks.ListByWard(wardID, true)
	if err != nil {
		return 0, err
	}
	taskIDs := make([]int64, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	if err := s.sessionTasks.BulkCreate(sessionID, taskIDs); err != nil {
		return 0, err
	}
	return len(taskIDs), nil
}

// repairEmptyBoard re-materializes a reused session that has no task rows,
// which happens when a prior bootstrap created the session but died before
// copying the catalog.
func (s *Service) repairEmptyBoard(sess *model.CleaningSession) error {
	n, err := s.sessionTasks.CountBySession(sess.ID)
	if err != nil || n > 0 {
		return err
	}
	repaired, err := s.materialize(sess.ID, sess.WardID)
	if err != nil {
		return err
	}
	if repaired > 0 {
		s.logger.Warn("re-materialized empty board", "session_id", sess.ID, "tasks", repaired)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
