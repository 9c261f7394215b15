package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/sessions"

	"github.com/harrylevesque/listqr/internal/crypto"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/store"
)

// CookieName is the session cookie.
const CookieName = "listqr-session"

const (
	keyUserID   = "user_id"
	keyEmail    = "email"
	keyIssuedAt = "issued_at"
)

// Store is an interface for storing sessions.
type Store interface {
	Get(r *http.Request, name string) (*sessions.Session, error)
	New(r *http.Request, name string) (*sessions.Session, error)
	Save(r *http.Request, w http.ResponseWriter, s *sessions.Session) error
}

type Options struct {
	Keys         crypto.SessionKeys
	MaxAge       time.Duration
	RefreshAfter time.Duration
	Secure       bool
	BcryptCost   int
}

// Sessions is the session store handle. It is passed explicitly to whatever
// needs the current identity.
type Sessions struct {
	store        Store
	users        store.Users
	notifier     *Notifier
	refreshAfter time.Duration
	bcryptCost   int
	now          func() time.Time
}

// NewSessions builds a cookie-backed session store.
func NewSessions(users store.Users, opts Options) *Sessions {
	cs := sessions.NewCookieStore(opts.Keys.Hash, opts.Keys.Block)
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	cs.MaxAge(cs.Options.MaxAge)
	return &Sessions{
		store:        cs,
		users:        users,
		notifier:     NewNotifier(),
		refreshAfter: opts.RefreshAfter,
		bcryptCost:   opts.BcryptCost,
		now:          time.Now,
	}
}

// OnSessionChange subscribes fn to sign-in, sign-out and refresh events.
func (a *Sessions) OnSessionChange(fn func(SessionEvent)) (cancel func()) {
	return a.notifier.Subscribe(fn)
}

// SignInWithPassword checks credentials and writes the session cookie.
func (a *Sessions) SignInWithPassword(w http.ResponseWriter, r *http.Request, email, password string) (models.Identity, error) {
	if err := (LoginRequest{Email: email, Password: password}).Validate(); err != nil {
		return models.Identity{}, err
	}
	u, err := a.users.UserByEmail(r.Context(), email)
	if errors.Is(err, models.ErrNotFound) {
		return models.Identity{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.Identity{}, err
	}
	if !CheckPasswordHash(password, u.PasswordHash) {
		return models.Identity{}, models.ErrInvalidCredentials
	}
	id, err := a.issue(w, r, u)
	if err != nil {
		return models.Identity{}, err
	}
	a.notifier.Publish(SessionEvent{Kind: SignedIn, Identity: &id, At: id.IssuedAt})
	return id, nil
}

// SignUpWithPassword creates the account and signs it in.
func (a *Sessions) SignUpWithPassword(w http.ResponseWriter, r *http.Request, email, password string) (models.Identity, error) {
	if err := ValidateSignUp(email, password); err != nil {
		return models.Identity{}, err
	}
	hash, err := HashPassword(password, a.bcryptCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := a.users.CreateUser(r.Context(), email, hash)
	if err != nil {
		return models.Identity{}, err
	}
	id, err := a.issue(w, r, u)
	if err != nil {
		return models.Identity{}, err
	}
	a.notifier.Publish(SessionEvent{Kind: SignedIn, Identity: &id, At: id.IssuedAt})
	return id, nil
}

// SignOut expires the session cookie.
func (a *Sessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	s, _ := a.store.Get(r, CookieName)
	had := s != nil && s.Values[keyUserID] != nil
	s.Values = map[interface{}]interface{}{}
	s.Options.MaxAge = -1
	if err := a.store.Save(r, w, s); err != nil {
		return err
	}
	if had {
		a.notifier.Publish(SessionEvent{Kind: SignedOut, At: a.now()})
	}
	return nil
}

// CurrentSession returns the identity in the request cookie, or nil when signed out.
// An undecodable cookie counts as signed out.
func (a *Sessions) CurrentSession(r *http.Request) (*models.Identity, error) {
	s, err := a.store.Get(r, CookieName)
	if err != nil || s == nil {
		return nil, nil
	}
	userID, _ := s.Values[keyUserID].(string)
	if userID == "" {
		return nil, nil
	}
	email, _ := s.Values[keyEmail].(string)
	issued, _ := s.Values[keyIssuedAt].(int64)
	return &models.Identity{UserID: userID, Email: email, IssuedAt: time.Unix(issued, 0).UTC()}, nil
}

// Refresh reissues the cookie when it is older than the refresh interval.
// It reports whether a new cookie was written.
func (a *Sessions) Refresh(w http.ResponseWriter, r *http.Request, id *models.Identity) (bool, error) {
	if id == nil || a.refreshAfter <= 0 || a.now().Sub(id.IssuedAt) < a.refreshAfter {
		return false, nil
	}
	fresh, err := a.issue(w, r, models.User{ID: id.UserID, Email: id.Email})
	if err != nil {
		return false, err
	}
	*id = fresh
	a.notifier.Publish(SessionEvent{Kind: Refreshed, Identity: &fresh, At: fresh.IssuedAt})
	return true, nil
}

func (a *Sessions) issue(w http.ResponseWriter, r *http.Request, u models.User) (models.Identity, error) {
	s, err := a.store.Get(r, CookieName)
	if err != nil || s == nil {
		// Stale or foreign cookie; start over.
		s, err = a.store.New(r, CookieName)
		if s == nil {
			return models.Identity{}, err
		}
	}
	issued := a.now().UTC().Truncate(time.Second)
	s.Values[keyUserID] = u.ID
	s.Values[keyEmail] = u.Email
	s.Values[keyIssuedAt] = issued.Unix()
	if err := a.store.Save(r, w, s); err != nil {
		return models.Identity{}, fmt.Errorf("save session: %w", err)
	}
	return models.Identity{UserID: u.ID, Email: u.Email, IssuedAt: issued}, nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity loaded by Middleware, or nil.
func IdentityFrom(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(ctxKey{}).(*models.Identity)
	return id
}

// Middleware loads the current identity into the request context and
// refreshes old cookies. It never blocks a request.
func (a *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := a.CurrentSession(r)
		if id != nil {
			_, _ = a.Refresh(w, r, id)
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireIdentity redirects to the sign-in page, remembering where the user was going.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()) == nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL is the sign-in page that returns to returnURL afterwards.
func LoginURL(returnURL string) string {
	if returnURL == "" || returnURL == "/" {
		return "/login"
	}
	return "/login?returnUrl=" + url.QueryEscape(returnURL)
}

// SafeReturnURL keeps only same-site paths.
func SafeReturnURL(raw string) string {
	if raw == "" || raw[0] != '/' || (len(raw) > 1 && (raw[1] == '/' || raw[1] == '\\')) {
		return "/"
	}
	return raw
}
