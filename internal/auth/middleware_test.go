package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokeking/smokeking-api/internal/domain"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	err   error
	calls int
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*domain.User)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) set(id int64, mutate func(*domain.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(f.users[id])
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func newTestApp(tm *TokenManager, users *fakeUsers) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"success": false, "message": de.Message})
		},
	})
	mw := NewAuthMiddleware(tm, users)

	handler := func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"success": true, "message": "ok", "data": fiber.Map{"role": p.Role()}})
	}
	app.Get("/me", mw.Handle, RequireRoles(AnyRole), handler)
	app.Get("/coach", mw.Handle, RequireRoles(CoachOnly), handler)
	app.Get("/unguarded", RequireRoles(AnyRole), handler)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, authHeader string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func issue(t *testing.T, tm *TokenManager, u domain.User) string {
	t.Helper()
	token, _, err := tm.Issue(domain.Identity{SubjectID: u.ID, Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return token
}

var (
	memberUser = domain.User{ID: 6, Email: "member@smokeking.local", Role: domain.RoleMember, IsActive: true}
	coachUser  = domain.User{ID: 7, Email: "coach@smokeking.local", Role: domain.RoleCoach, IsActive: true}
	adminUser  = domain.User{ID: 1, Email: "admin@smokeking.local", Role: domain.RoleAdmin, IsActive: true}
)

func TestAuthMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	app := newTestApp(tm, users)
	token := issue(t, tm, memberUser)

	cases := map[string]string{
		"missing":          "",
		"lowercase scheme": "bearer " + token,
		"basic scheme":     "Basic dXNlcjpwYXNz",
		"no token":         "Bearer ",
		"no space":         "Bearer" + token,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(t, app, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
	assert.Zero(t, users.callCount())
}

func TestAuthMiddlewareGarbageTokenSkipsLookup(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	app := newTestApp(tm, users)

	status, body := doRequest(t, app, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid or expired token", body.Message)
	assert.Zero(t, users.callCount())
}

func TestAuthMiddlewareDoesNotRevealWhichCheckFailed(t *testing.T) {
	issuedAt := time.Now().Add(-48 * time.Hour)
	expired := issue(t, NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt))), memberUser)
	forged := issue(t, NewTokenManager("attacker", time.Hour), memberUser)

	app := newTestApp(NewTokenManager(testSecret, time.Hour), newFakeUsers(memberUser))

	_, expiredBody := doRequest(t, app, "/me", "Bearer "+expired)
	_, forgedBody := doRequest(t, app, "/me", "Bearer "+forged)
	assert.Equal(t, expiredBody.Message, forgedBody.Message)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	app := newTestApp(tm, users)

	status, body := doRequest(t, app, "/me", "Bearer "+issue(t, tm, memberUser))
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, "member", body.Data["role"])
	assert.Equal(t, 1, users.callCount())
}

func TestAuthMiddlewareReloadsUserEveryRequest(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	app := newTestApp(tm, users)
	header := "Bearer " + issue(t, tm, memberUser)

	for i := 0; i < 3; i++ {
		status, _ := doRequest(t, app, "/me", header)
		require.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, 3, users.callCount())
}

func TestAuthMiddlewareRejectsDeactivatedUser(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	app := newTestApp(tm, users)
	header := "Bearer " + issue(t, tm, memberUser)

	status, _ := doRequest(t, app, "/me", header)
	require.Equal(t, http.StatusOK, status)

	users.set(memberUser.ID, func(u *domain.User) { u.IsActive = false })

	status, body := doRequest(t, app, "/me", header)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)
}

func TestAuthMiddlewareRejectsDeletedUser(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	app := newTestApp(tm, newFakeUsers())

	status, _ := doRequest(t, app, "/me", "Bearer "+issue(t, tm, memberUser))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddlewareStoreFailureIsInternal(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser)
	users.err = errors.New("connection reset")
	app := newTestApp(tm, users)

	status, body := doRequest(t, app, "/me", "Bearer "+issue(t, tm, memberUser))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Message)
}

func TestRoleGate(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(memberUser, coachUser, adminUser)
	app := newTestApp(tm, users)

	tests := []struct {
		name   string
		user   domain.User
		status int
	}{
		{name: "member denied coach route", user: memberUser, status: http.StatusForbidden},
		{name: "coach allowed coach route", user: coachUser, status: http.StatusOK},
		{name: "admin has no implicit coach access", user: adminUser, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, "/coach", "Bearer "+issue(t, tm, tt.user))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status == http.StatusOK, body.Success)
		})
	}
}

func TestRoleGateUsesStoredRoleNotTokenRole(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	users := newFakeUsers(coachUser)
	app := newTestApp(tm, users)
	header := "Bearer " + issue(t, tm, coachUser)

	status, _ := doRequest(t, app, "/coach", header)
	require.Equal(t, http.StatusOK, status)

	users.set(coachUser.ID, func(u *domain.User) { u.Role = domain.RoleMember })

	status, _ = doRequest(t, app, "/coach", header)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRoleGateWithoutPrincipal(t *testing.T) {
	app := newTestApp(NewTokenManager(testSecret, time.Hour), newFakeUsers())

	status, _ := doRequest(t, app, "/unguarded", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleSet(t *testing.T) {
	set := NewRoleSet(domain.RoleMember, domain.RoleGuest)
	assert.True(t, set.Allows(domain.RoleMember))
	assert.False(t, set.Allows(domain.Role("Member")))
	assert.False(t, set.Allows(domain.RoleAdmin))
	assert.False(t, NewRoleSet().Allows(domain.RoleAdmin))

	assert.Panics(t, func() { NewRoleSet(domain.Role("Coach")) })
}
