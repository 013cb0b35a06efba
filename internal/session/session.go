// Package session exposes the per-client login state to handlers through an
// explicit interface instead of reaching into gin-contrib/sessions directly.
package session

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
)

const (
	CookieName = "gk_session"
	keyUserID  = "user_id"
)

// Session holds at most one authenticated user id for a client.
type Session interface {
	UserID() (int64, bool)
	SetUserID(id int64)
	Clear()
	AddFlash(message string)
	Flashes() []string
	Save() error
}

type ginSession struct {
	s sessions.Session
}

// FromContext returns the session attached by the Middleware.
func FromContext(c *gin.Context) Session {
	return &ginSession{s: sessions.Default(c)}
}

func (g *ginSession) UserID() (int64, bool) {
	switch v := g.s.Get(keyUserID).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func (g *ginSession) SetUserID(id int64) {
	g.s.Set(keyUserID, id)
}

func (g *ginSession) Clear() {
	g.s.Clear()
}

func (g *ginSession) AddFlash(message string) {
	g.s.AddFlash(message)
}

func (g *ginSession) Flashes() []string {
	raw := g.s.Flashes()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (g *ginSession) Save() error {
	return g.s.Save()
}

// StoreOptions configures the backing store and cookie attributes.
type StoreOptions struct {
	Backend       string // "cookie" or "redis"
	Secret        []byte
	MaxAgeSeconds int
	Secure        bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewStore builds a cookie-signed or redis-backed session store.
func NewStore(opts StoreOptions) (sessions.Store, error) {
	var store sessions.Store
	switch opts.Backend {
	case "", "cookie":
		store = cookie.NewStore(opts.Secret)
	case "redis":
		rs, err := redis.NewStoreWithDB(10, "tcp", opts.RedisAddr, opts.RedisPassword, strconv.Itoa(opts.RedisDB), opts.Secret)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAgeSeconds,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// Middleware attaches the named session to every request.
func Middleware(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(CookieName, store)
}
