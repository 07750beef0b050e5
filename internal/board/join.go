package board

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

// Join registers the actor as a session participant, idempotently: a repeat
// join refreshes the existing row's heartbeat instead of duplicating it.
// Authenticated actors get their profile name; guests get a random
// "Guest NNNN" that sticks to their participant row.
func (s *Service) Join(ctx context.Context, sessionID int64, ident identity.Identity) (*model.SessionParticipant, error) {
	if !ident.Valid() {
		return nil, ErrNoIdentity
	}

	displayName := ""
	avatarURL := ""
	if ident.IsAuthenticated() {
		u, err := s.users.GetByID(ident.UserID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			displayName = u.DisplayName
			if displayName == "" {
				displayName = emailLocalPart(u.Email)
			}
		}
		if displayName == "" {
			displayName = "Member"
		}
	} else {
		displayName = guestName()
	}

	var p *model.SessionParticipant
	var created bool
	err := store.WithRetry(ctx, func() error {
		var joinErr error
		p, created, joinErr = s.participants.Join(sessionID, ident, displayName, avatarURL)
		return joinErr
	})
	if err != nil {
		return nil, err
	}

	action := "updated"
	if created {
		action = "created"
	}
	s.applyParticipant(*p, action)
	return p, nil
}

// Heartbeat refreshes a participant's last-active timestamp on repeat visits.
func (s *Service) Heartbeat(ctx context.Context, sessionID, participantID int64) error {
	p, err := s.participants.GetByID(participantID)
	if err != nil {
		return err
	}
	if p == nil {
		return store.ErrNotFound
	}
	if err := s.participants.Heartbeat(participantID, time.Now()); err != nil {
		return err
	}
	refreshed, err := s.participants.GetByID(participantID)
	if err != nil {
		return err
	}
	if refreshed != nil {
		s.applyParticipant(*refreshed, "updated")
	}
	return nil
}

func guestName() string {
	return fmt.Sprintf("Guest %04d", rand.IntN(9000)+1000)
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
