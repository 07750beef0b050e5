package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dulbrich/wardclean/internal/board"
	"github.com/dulbrich/wardclean/internal/handler"
	"github.com/dulbrich/wardclean/internal/middleware"
	"github.com/dulbrich/wardclean/internal/push"
	"github.com/dulbrich/wardclean/internal/realtime"
	"github.com/dulbrich/wardclean/internal/store"
)

type Server struct {
	db            *sql.DB
	hub           *realtime.Hub
	boardSvc      *board.Service
	authH         *handler.AuthHandler
	boardH        *handler.BoardHandler
	wardH         *handler.WardHandler
	scheduleH     *handler.ScheduleHandler
	wardTaskH     *handler.WardTaskHandler
	pushH         *handler.PushHandler
	authSessions  *store.AuthSessionStore
	rateLimiter   *middleware.RateLimiter
	pushService   *push.Service
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

// PushConfig holds VAPID configuration; push features are disabled when the
// keys are empty.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

func New(db *sql.DB, pushCfg PushConfig, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	authSessionStore := store.NewAuthSessionStore(db)
	wardStore := store.NewWardStore(db)
	scheduleStore := store.NewScheduleStore(db)
	wardTaskStore := store.NewWardTaskStore(db)
	sessionStore := store.NewSessionStore(db)
	sessionTaskStore := store.NewSessionTaskStore(db)
	participantStore := store.NewParticipantStore(db)
	viewerStore := store.NewViewerStore(db)
	pushStore := store.NewPushStore(db)

	boardSvc := board.NewService(
		sessionStore, scheduleStore, wardTaskStore, sessionTaskStore,
		participantStore, viewerStore, userStore,
		hub, logger.With("component", "board"),
	)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, scheduleStore, pushLogger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushLogger)
	}

	wardH := handler.NewWardHandler(wardStore, userStore, logger.With("component", "ward"))

	return &Server{
		db:            db,
		hub:           hub,
		boardSvc:      boardSvc,
		authH:         handler.NewAuthHandler(userStore, authSessionStore, logger.With("component", "auth")),
		boardH:        handler.NewBoardHandler(boardSvc, sessionStore, participantStore, logger.With("component", "board_handler")),
		wardH:         wardH,
		scheduleH:     handler.NewScheduleHandler(scheduleStore, wardH, logger.With("component", "schedule")),
		wardTaskH:     handler.NewWardTaskHandler(wardTaskStore, wardH, logger.With("component", "ward_task")),
		pushH:         pushH,
		authSessions:  authSessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// AuthSessionStore returns the auth session store for cleanup tasks.
func (s *Server) AuthSessionStore() *store.AuthSessionStore {
	return s.authSessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the reminder scheduler, nil when push is disabled.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Account surface
	mux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.Handle("GET /api/me", s.authed(s.authH.Me))
	mux.Handle("PUT /api/me", s.authed(s.authH.UpdateProfile))

	// Board surface — open to guests; per-operation rules decide the rest
	mux.HandleFunc("GET /api/wards/{id}/board", s.boardH.Bootstrap)
	mux.HandleFunc("GET /api/sessions/{id}/state", s.boardH.State)
	mux.HandleFunc("POST /api/sessions/{id}/join", s.boardH.Join)
	mux.HandleFunc("POST /api/sessions/{id}/heartbeat", s.boardH.Heartbeat)
	mux.HandleFunc("POST /api/sessions/{id}/leave", s.boardH.Leave)
	mux.HandleFunc("POST /api/sessions/{id}/complete", s.boardH.CompleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/tasks/{task_id}/claim", s.boardH.Claim)
	mux.HandleFunc("POST /api/sessions/{id}/tasks/{task_id}/complete", s.boardH.Complete)
	mux.HandleFunc("POST /api/sessions/{id}/tasks/{task_id}/cancel", s.boardH.Cancel)
	mux.HandleFunc("POST /api/sessions/{id}/tasks/{task_id}/view", s.boardH.OpenView)
	mux.HandleFunc("DELETE /api/sessions/{id}/tasks/{task_id}/view", s.boardH.CloseView)
	mux.HandleFunc("GET /api/join/{code}", s.boardH.JoinByCode)

	// Ward administration
	mux.Handle("POST /api/wards", s.authed(s.wardH.Create))
	mux.Handle("GET /api/wards", s.authed(s.wardH.List))
	mux.Handle("GET /api/wards/{id}", s.authed(s.wardH.Get))
	mux.Handle("PUT /api/wards/{id}", s.authed(s.wardH.Update))
	mux.Handle("DELETE /api/wards/{id}", s.authed(s.wardH.Delete))
	mux.Handle("POST /api/wards/{id}/members", s.authed(s.wardH.AddMember))
	mux.Handle("POST /api/wards/{id}/primary", s.authed(s.wardH.SetPrimary))

	// Schedule administration
	mux.Handle("POST /api/wards/{id}/schedules", s.authed(s.scheduleH.Create))
	mux.Handle("GET /api/wards/{id}/schedules", s.authed(s.scheduleH.List))
	mux.Handle("GET /api/schedules/{id}", s.authed(s.scheduleH.Get))
	mux.Handle("PUT /api/schedules/{id}", s.authed(s.scheduleH.Update))
	mux.Handle("DELETE /api/schedules/{id}", s.authed(s.scheduleH.Delete))

	// Task catalog administration
	mux.Handle("POST /api/wards/{id}/tasks", s.authed(s.wardTaskH.Create))
	mux.Handle("GET /api/wards/{id}/tasks", s.authed(s.wardTaskH.List))
	mux.Handle("GET /api/ward-tasks/{id}", s.authed(s.wardTaskH.Get))
	mux.Handle("PUT /api/ward-tasks/{id}", s.authed(s.wardTaskH.Update))
	mux.Handle("DELETE /api/ward-tasks/{id}", s.authed(s.wardTaskH.Delete))

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.Handle("POST /api/push/subscriptions", s.authed(s.pushH.Subscribe))
		mux.Handle("GET /api/push/subscriptions", s.authed(s.pushH.List))
		mux.Handle("DELETE /api/push/subscriptions/{id}", s.authed(s.pushH.Unsubscribe))
	}

	// Change feed
	snapshot := func(ctx context.Context, sessionID int64) (any, error) {
		return s.boardSvc.Snapshot(ctx, sessionID)
	}
	mux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, snapshot, s.logger.With("component", "realtime")))

	var h http.Handler = mux
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.Authenticate(s.authSessions)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
