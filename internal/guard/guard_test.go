package guard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weddingsite/internal/model"
	"weddingsite/internal/role"
	"weddingsite/internal/session"
)

var testPaths = Paths{Login: "/login", Default: "/rsvp"}

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]*model.Identity
}

func (f *fakeSessions) GetSession(ctx context.Context, token string) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

func (f *fakeSessions) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

type fakeRoles map[uuid.UUID]role.Role

func (f fakeRoles) Resolve(ctx context.Context, identity *model.Identity) role.Role {
	if r, ok := f[identity.ID]; ok {
		return r
	}
	return role.User
}

func TestPaths_Evaluate(t *testing.T) {
	guest := &model.Identity{ID: uuid.New(), Email: "guest@example.com"}

	tests := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "session loading",
			in:   Input{Loading: true, Location: "/rsvp"},
			want: Decision{State: Checking},
		},
		{
			name: "unauthenticated keeps requested location",
			in:   Input{Location: "/admin?page=2"},
			want: Decision{State: Redirected, To: "/login?next=%2Fadmin%3Fpage%3D2", From: "/admin?page=2"},
		},
		{
			name: "authenticated on user route",
			in:   Input{Identity: guest, Location: "/rsvp"},
			want: Decision{State: Allowed},
		},
		{
			name: "role still loading on admin route",
			in:   Input{Identity: guest, RequireAdmin: true, RoleLoading: true, Location: "/admin"},
			want: Decision{State: Checking},
		},
		{
			name: "non-admin on admin route goes to default, not login",
			in:   Input{Identity: guest, RequireAdmin: true, Role: role.User, Location: "/admin"},
			want: Decision{State: Redirected, To: "/rsvp", From: "/admin"},
		},
		{
			name: "admin on admin route",
			in:   Input{Identity: guest, RequireAdmin: true, Role: role.Admin, Location: "/admin"},
			want: Decision{State: Allowed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testPaths.Evaluate(tt.in))
		})
	}
}

func newTestGuard() (*Guard, *model.Identity, *model.Identity) {
	guest := &model.Identity{ID: uuid.New(), Email: "guest@example.com"}
	admin := &model.Identity{ID: uuid.New(), Email: "admin@example.com"}
	sessions := &fakeSessions{tokens: map[string]*model.Identity{"guest-token": guest, "admin-token": admin}}
	roles := fakeRoles{admin.ID: role.Admin}
	return New(sessions, roles, testPaths, zerolog.Nop()), guest, admin
}

func serve(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *model.Identity) {
	e := echo.New()
	var seen *model.Identity
	h := mw(func(c echo.Context) error {
		seen = IdentityFrom(c)
		return c.String(http.StatusOK, string(RoleFrom(c)))
	})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h(c)
	return rec, seen
}

func TestGuard_Middleware(t *testing.T) {
	g, guest, admin := newTestGuard()

	tests := []struct {
		name         string
		mw           echo.MiddlewareFunc
		setup        func(*http.Request)
		target       string
		wantStatus   int
		wantRedirect string
		wantIdentity *model.Identity
	}{
		{
			name:         "api call without token",
			mw:           g.Authenticated(),
			target:       "/api/rsvp",
			wantStatus:   http.StatusUnauthorized,
			wantRedirect: "/login?next=%2Fapi%2Frsvp",
		},
		{
			name:   "browser navigation without token",
			mw:     g.Authenticated(),
			target: "/api/rsvp/form",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
			},
			wantStatus:   http.StatusFound,
			wantRedirect: "/login?next=%2Fapi%2Frsvp%2Fform",
		},
		{
			name:   "bearer token",
			mw:     g.Authenticated(),
			target: "/api/rsvp",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer guest-token")
			},
			wantStatus:   http.StatusOK,
			wantIdentity: guest,
		},
		{
			name:   "cookie token",
			mw:     g.Authenticated(),
			target: "/api/rsvp",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "guest-token"})
			},
			wantStatus:   http.StatusOK,
			wantIdentity: guest,
		},
		{
			name:   "non-admin on admin route",
			mw:     g.Admin(),
			target: "/api/admin/rsvps",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer guest-token")
			},
			wantStatus:   http.StatusForbidden,
			wantRedirect: "/rsvp",
		},
		{
			name:   "non-admin browser navigation to admin",
			mw:     g.Admin(),
			target: "/api/admin/rsvps",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer guest-token")
				r.Header.Set(echo.HeaderAccept, "text/html")
			},
			wantStatus:   http.StatusFound,
			wantRedirect: "/rsvp",
		},
		{
			name:   "admin on admin route",
			mw:     g.Admin(),
			target: "/api/admin/rsvps",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer admin-token")
			},
			wantStatus:   http.StatusOK,
			wantIdentity: admin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.setup != nil {
				tt.setup(req)
			}

			rec, seen := serve(tt.mw, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantIdentity, seen)
			switch tt.wantStatus {
			case http.StatusFound:
				assert.Equal(t, tt.wantRedirect, rec.Header().Get(echo.HeaderLocation))
			case http.StatusUnauthorized, http.StatusForbidden:
				var body DeniedResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantRedirect, body.RedirectTo)
			}
		})
	}
}

func TestGuard_AdminRoleExposedToHandler(t *testing.T) {
	g, _, _ := newTestGuard()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/rsvps", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer admin-token")

	rec, _ := serve(g.Admin(), req)

	assert.Equal(t, "admin", rec.Body.String())
}

func TestWatch_ReevaluatesOnSessionChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guest := &model.Identity{ID: uuid.New()}
	sessions := &fakeSessions{tokens: map[string]*model.Identity{"guest-token": guest}}
	hub := session.NewHub(nil, zerolog.Nop())
	defer hub.Close()
	resolver := session.NewResolver(sessions, hub, "guest-token", zerolog.Nop())
	defer resolver.Close()

	decisions := make(chan Decision, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, resolver, fakeRoles{}, testPaths, "/rsvp", false, func(d Decision) error {
			decisions <- d
			return nil
		})
	}()

	next := func() Decision {
		select {
		case d := <-decisions:
			return d
		case <-time.After(2 * time.Second):
			t.Fatal("no decision emitted")
			return Decision{}
		}
	}

	assert.Equal(t, Checking, next().State)
	assert.Equal(t, Allowed, next().State)

	sessions.revoke("guest-token")
	hub.Publish(ctx, session.Event{Type: session.SignedOut, UserID: guest.ID})

	d := next()
	assert.Equal(t, Redirected, d.State)
	assert.Equal(t, "/login?next=%2Frsvp", d.To)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_AdminRouteResolvesRole(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guest := &model.Identity{ID: uuid.New()}
	sessions := &fakeSessions{tokens: map[string]*model.Identity{"t": guest}}
	resolver := session.NewResolver(sessions, nil, "t", zerolog.Nop())
	defer resolver.Close()

	var got []Decision
	err := Watch(ctx, resolver, fakeRoles{}, testPaths, "/admin", true, func(d Decision) error {
		got = append(got, d)
		if len(got) == 3 {
			cancel()
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Checking, got[0].State)
	assert.Equal(t, Checking, got[1].State)
	assert.Equal(t, Decision{State: Redirected, To: "/rsvp", From: "/admin"}, got[2])
}
