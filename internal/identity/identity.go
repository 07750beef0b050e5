package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Identity is a tagged variant for the two kinds of actor the board serves:
// an authenticated user or an anonymous guest with a client-persisted temp id.
// Exactly one of UserID/TempID is meaningful, selected by Kind.
type Identity struct {
	Kind   Kind
	UserID int64
	TempID string
}

type Kind int

const (
	KindNone Kind = iota
	KindAuthenticated
	KindAnonymous
)

func Authenticated(userID int64) Identity {
	return Identity{Kind: KindAuthenticated, UserID: userID}
}

func Anonymous(tempID string) Identity {
	return Identity{Kind: KindAnonymous, TempID: tempID}
}

// NewTempID generates a fresh anonymous pseudo-identity of the form
// anon_xxxxxxxx. The client persists it per session and presents it on
// subsequent visits.
func NewTempID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "anon_" + hex.EncodeToString(b)
}

func (id Identity) IsAuthenticated() bool { return id.Kind == KindAuthenticated }

func (id Identity) Valid() bool {
	switch id.Kind {
	case KindAuthenticated:
		return id.UserID != 0
	case KindAnonymous:
		return id.TempID != ""
	}
	return false
}

func (id Identity) Equal(other Identity) bool {
	if id.Kind != other.Kind {
		return false
	}
	switch id.Kind {
	case KindAuthenticated:
		return id.UserID == other.UserID
	case KindAnonymous:
		return id.TempID == other.TempID
	}
	return false
}

// Key returns a stable string key for dedup maps: user ids win over temp ids.
func (id Identity) Key() string {
	switch id.Kind {
	case KindAuthenticated:
		return fmt.Sprintf("user:%d", id.UserID)
	case KindAnonymous:
		return "temp:" + id.TempID
	}
	return ""
}

type contextKey struct{}

type authKey struct{}

// AuthContext carries the authenticated user's session info. Only present for
// logged-in actors; guests carry just an Identity.
type AuthContext struct {
	UserID    int64
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.Valid()
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, ac)
}

func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := AuthFromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
