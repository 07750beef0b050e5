package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

// Scheduler sends day-before cleaning reminders to ward members with push
// subscriptions. Sent reminders are tracked in memory per schedule entry; a
// restart may re-send, which the browser dedupes by tag.
type Scheduler struct {
	mu        sync.RWMutex
	service   *Service
	push      *store.PushStore
	schedules *store.ScheduleStore
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}

	sent map[int64]struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, scheduleStore *store.ScheduleStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:   svc,
		push:      pushStore,
		schedules: scheduleStore,
		logger:    logger,
		interval:  time.Hour,
		sent:      make(map[int64]struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	upcoming, err := s.schedules.ListBetween(tomorrow, tomorrow.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("push scheduler: list schedules", "error", err)
		return
	}

	for _, sched := range upcoming {
		if s.alreadySent(sched.ID) {
			continue
		}
		s.remind(sched)
		s.markSent(sched.ID)
	}
}

func (s *Scheduler) remind(sched model.CleaningSchedule) {
	subs, err := s.push.ListByWard(sched.WardID)
	if err != nil {
		s.logger.Error("push scheduler: list subscriptions", "ward_id", sched.WardID, "error", err)
		return
	}

	payload := Payload{
		Title: "Building Cleaning Tomorrow",
		Body:  fmt.Sprintf("%s is scheduled for %s", sched.Name, sched.Date.Format("Monday, Jan 2")),
		URL:   fmt.Sprintf("/wards/%d/board", sched.WardID),
		Tag:   fmt.Sprintf("cleaning-reminder-%d", sched.ID),
	}

	for _, sub := range subs {
		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				s.logger.Error("push scheduler: send reminder", "schedule_id", sched.ID, "error", err)
			}
		}
	}
	s.logger.Info("sent cleaning reminders", "schedule_id", sched.ID, "subscriptions", len(subs))
}

func (s *Scheduler) alreadySent(scheduleID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sent[scheduleID]
	return ok
}

func (s *Scheduler) markSent(scheduleID int64) {
	s.mu.Lock()
	s.sent[scheduleID] = struct{}{}
	s.mu.Unlock()
}
