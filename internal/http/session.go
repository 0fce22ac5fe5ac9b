package http

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

const (
	sessionCookie  = "housetrend_admin"
	sessionAuthKey = "authenticated"
)

// sessions keeps logged-in admin browsers in an in-memory scs store.
type sessions struct {
	*scs.SessionManager
	store *memstore.MemStore
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	store := memstore.NewWithCleanupInterval(time.Minute)
	sm := scs.New()
	sm.Store = store
	sm.Lifetime = ttl
	sm.Cookie.Name = sessionCookie
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	return &sessions{SessionManager: sm, store: store}
}

func (s *sessions) authenticated(ctx context.Context) bool {
	return s.GetBool(ctx, sessionAuthKey)
}

// login swaps the session token so a pre-login cookie cannot be reused.
func (s *sessions) login(ctx context.Context) error {
	if err := s.RenewToken(ctx); err != nil {
		return err
	}
	s.Put(ctx, sessionAuthKey, true)
	return nil
}

func (s *sessions) logout(ctx context.Context) error {
	return s.Destroy(ctx)
}

func (s *sessions) stop() { s.store.StopCleanup() }
