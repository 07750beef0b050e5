package board

import (
	"strconv"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
)

// BoardState is the authoritative in-memory copy of one session's board. All
// merges key on row id and are idempotent: applying the same event twice, or
// an event for a row already merged from a snapshot, leaves the state
// unchanged. That tolerance is what lets the optimistic write path and the
// change feed race each other freely.
type BoardState struct {
	Session      *model.CleaningSession     `json:"session"`
	Tasks        []model.SessionTaskDetail  `json:"tasks"`
	Participants []model.SessionParticipant `json:"participants"`
	Viewers      []model.TaskViewer         `json:"viewers"`
}

// SetSession replaces the session row.
func (b *BoardState) SetSession(s *model.CleaningSession) {
	b.Session = s
}

// UpsertTask merges a task by id: update-if-exists, else append.
func (b *BoardState) UpsertTask(d model.SessionTaskDetail) {
	for i := range b.Tasks {
		if b.Tasks[i].ID == d.ID {
			b.Tasks[i] = d
			return
		}
	}
	b.Tasks = append(b.Tasks, d)
}

// RemoveTask drops a task by id; removing an absent id is a no-op.
func (b *BoardState) RemoveTask(id int64) {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			b.Tasks = append(b.Tasks[:i], b.Tasks[i+1:]...)
			return
		}
	}
}

// UpsertParticipant merges a participant by id.
func (b *BoardState) UpsertParticipant(p model.SessionParticipant) {
	for i := range b.Participants {
		if b.Participants[i].ID == p.ID {
			b.Participants[i] = p
			return
		}
	}
	b.Participants = append(b.Participants, p)
}

// RemoveParticipant drops a participant by id.
func (b *BoardState) RemoveParticipant(id int64) {
	for i := range b.Participants {
		if b.Participants[i].ID == id {
			b.Participants = append(b.Participants[:i], b.Participants[i+1:]...)
			return
		}
	}
}

// UpsertViewer merges a viewing marker, keyed on (task, participant) to match
// the storage uniqueness rule.
func (b *BoardState) UpsertViewer(v model.TaskViewer) {
	for i := range b.Viewers {
		if b.Viewers[i].SessionTaskID == v.SessionTaskID && b.Viewers[i].ParticipantID == v.ParticipantID {
			b.Viewers[i] = v
			return
		}
	}
	b.Viewers = append(b.Viewers, v)
}

// RemoveViewer drops a viewing marker by (task, participant).
func (b *BoardState) RemoveViewer(sessionTaskID, participantID int64) {
	for i := range b.Viewers {
		if b.Viewers[i].SessionTaskID == sessionTaskID && b.Viewers[i].ParticipantID == participantID {
			b.Viewers = append(b.Viewers[:i], b.Viewers[i+1:]...)
			return
		}
	}
}

// participantIdentityKey prefers the stable user id, falls back to the temp
// id, and finally to the raw participant row id.
func participantIdentityKey(p model.SessionParticipant) string {
	if p.UserID != nil {
		return identity.Authenticated(*p.UserID).Key()
	}
	if p.TempUserID != "" {
		return identity.Anonymous(p.TempUserID).Key()
	}
	return "participant:" + strconv.FormatInt(p.ID, 10)
}

// ViewersForTask resolves the participants currently viewing a task,
// collapsing stale duplicate rows that map to the same underlying identity.
func (b *BoardState) ViewersForTask(sessionTaskID int64) []model.SessionParticipant {
	byID := make(map[int64]model.SessionParticipant, len(b.Participants))
	for _, p := range b.Participants {
		byID[p.ID] = p
	}

	var out []model.SessionParticipant
	seen := make(map[string]bool)
	for _, v := range b.Viewers {
		if v.SessionTaskID != sessionTaskID {
			continue
		}
		p, ok := byID[v.ParticipantID]
		if !ok {
			continue
		}
		key := participantIdentityKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Clone returns a deep-enough copy safe to hand to JSON encoders while the
// original keeps mutating under the service lock.
func (b *BoardState) Clone() *BoardState {
	c := &BoardState{
		Tasks:        append([]model.SessionTaskDetail(nil), b.Tasks...),
		Participants: append([]model.SessionParticipant(nil), b.Participants...),
		Viewers:      append([]model.TaskViewer(nil), b.Viewers...),
	}
	if b.Session != nil {
		s := *b.Session
		c.Session = &s
	}
	return c
}
