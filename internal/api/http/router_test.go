package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smokeking/smokeking-api/internal/api/http/handlers"
	"github.com/smokeking/smokeking-api/internal/auth"
	"github.com/smokeking/smokeking-api/internal/config"
	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/repository/repotest"
	"github.com/smokeking/smokeking-api/internal/service"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app    *fiber.App
	store  *repotest.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	store := repotest.NewStore(time.Now())
	repos := store.Repos()
	tokens := auth.NewTokenManager("router-secret", time.Hour, auth.WithIssuer("smokeking-test"))
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	authService := service.NewAuthService(config.AuthConfig{BcryptCost: 4}, service.AuthDependencies{
		UserRepo: repos.Users,
		Tokens:   tokens,
	})
	membershipService := service.NewMembershipService(service.MembershipDependencies{
		Repos:      repos,
		Transactor: store,
		Dispatcher: dispatcher,
	})
	coachingService := service.NewCoachingService(service.CoachingDependencies{
		UserRepo:        repos.Users,
		AppointmentRepo: repos.Appointments,
		MessageRepo:     repos.Messages,
		Dispatcher:      dispatcher,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("smokeking-api", "test", deps),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(service.NewAdminService(repos.Users, nil)),
		Membership:     handlers.NewMembershipHandler(membershipService),
		Coaching:       handlers.NewCoachingHandler(coachingService),
		Survey:         handlers.NewSurveyHandler(service.NewSurveyService(repos.Surveys)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.Users),
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) user(t *testing.T, role domain.Role) (domain.User, string) {
	t.Helper()
	u := s.store.AddUser(domain.User{
		Name:     string(role),
		Email:    string(role) + "@example.com",
		Role:     role,
		IsActive: true,
	})
	token, _, err := s.tokens.Issue(domain.Identity{SubjectID: u.ID, Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	header := ""
	if token != "" {
		header = "Bearer " + token
	}
	return s.doWithHeader(t, method, path, header, body)
}

func (s *testServer) doWithHeader(t *testing.T, method, path, authorization string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

var guardedRoutes = []struct {
	method string
	path   string
}{
	{http.MethodGet, "/api/auth/me"},
	{http.MethodPut, "/api/auth/password"},
	{http.MethodPut, "/api/users/profile"},
	{http.MethodPost, "/api/membership/purchase"},
	{http.MethodGet, "/api/membership/me"},
	{http.MethodPost, "/api/membership/cancel"},
	{http.MethodGet, "/api/coaches"},
	{http.MethodPost, "/api/appointments"},
	{http.MethodGet, "/api/appointments"},
	{http.MethodPatch, "/api/appointments/1/status"},
	{http.MethodGet, "/api/coach/members"},
	{http.MethodPost, "/api/chat/messages"},
	{http.MethodGet, "/api/chat/messages/1"},
	{http.MethodPost, "/api/survey"},
	{http.MethodGet, "/api/survey/me"},
	{http.MethodGet, "/api/admin/users"},
	{http.MethodPatch, "/api/admin/users/1/role"},
	{http.MethodPatch, "/api/admin/users/1/status"},
	{http.MethodGet, "/api/admin/cancellations"},
	{http.MethodPost, "/api/admin/cancellations/1/approve"},
	{http.MethodPost, "/api/admin/cancellations/1/reject"},
}

func TestProtectedRoutesWithoutHeader(t *testing.T) {
	s := newTestServer(t, nil)

	for _, route := range guardedRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			status, body := s.do(t, route.method, route.path, "", map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "UNAUTHORIZED", body["code"])
		})
	}
}

func TestProtectedRoutesRejectLowercaseScheme(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.user(t, domain.RoleAdmin)

	for _, route := range guardedRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			status, body := s.doWithHeader(t, route.method, route.path, "bearer "+token, map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "invalid authorization header", body["message"])
		})
	}
}

func TestRoleGateOnCoachRoute(t *testing.T) {
	s := newTestServer(t, nil)
	_, memberToken := s.user(t, domain.RoleMember)
	_, coachToken := s.user(t, domain.RoleCoach)
	_, adminToken := s.user(t, domain.RoleAdmin)

	status, body := s.do(t, http.MethodGet, "/api/coach/members", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = s.do(t, http.MethodGet, "/api/coach/members", coachToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = s.do(t, http.MethodGet, "/api/coach/members", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdminRoutesRejectOtherRoles(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminToken := s.user(t, domain.RoleAdmin)

	for _, role := range []domain.Role{domain.RoleGuest, domain.RoleMember, domain.RoleCoach} {
		_, token := s.user(t, role)
		status, _ := s.do(t, http.MethodGet, "/api/admin/users", token, nil)
		assert.Equal(t, http.StatusForbidden, status, role)
	}

	status, body := s.do(t, http.MethodGet, "/api/admin/users?role=coach", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodGet, "/api/admin/users?role=Coach", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddPlan(domain.MembershipPlan{Name: "Basic", Price: 100, DurationDays: 30, IsActive: true})

	status, body := s.do(t, http.MethodGet, "/api/membership/plans", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Quinn",
		"email":    "quinn@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "password")
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Quinn",
		"email":    "quinn@example.com",
		"password": strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["errors"], "password")

	status, body = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Quinn",
		"email":    "quinn@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	token := body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)

	status, body = s.do(t, http.MethodPut, "/api/auth/password", token, map[string]any{
		"currentPassword": "password123",
		"newPassword":     strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["errors"], "newPassword")
}

func TestGuestPurchaseUsesFreshRole(t *testing.T) {
	s := newTestServer(t, nil)
	plan := s.store.AddPlan(domain.MembershipPlan{Name: "Basic", Price: 100, DurationDays: 30, IsActive: true})

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Quinn",
		"email":    "quinn@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	token := data["auth"].(map[string]any)["token"].(string)
	assert.Equal(t, "guest", data["user"].(map[string]any)["role"])

	status, _ = s.do(t, http.MethodPost, "/api/membership/cancel", token, map[string]any{
		"reason": "x", "bankName": "B", "accountNumber": "123456", "accountHolder": "Q",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/api/membership/purchase", token, map[string]any{
		"planId":        plan.ID,
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "member", body["data"].(map[string]any)["role"])

	// Same token, still carrying the guest claim.
	status, _ = s.do(t, http.MethodPost, "/api/membership/cancel", token, map[string]any{
		"reason": "x", "bankName": "B", "accountNumber": "123456", "accountHolder": "Q",
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestDeactivatedUserIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	member, token := s.user(t, domain.RoleMember)

	status, _ := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	member.IsActive = false
	s.store.AddUser(member)

	status, body := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "account not found or inactive", body["message"])
}

func TestAppointmentFlow(t *testing.T) {
	s := newTestServer(t, nil)
	member, memberToken := s.user(t, domain.RoleMember)
	coach, coachToken := s.user(t, domain.RoleCoach)

	status, body := s.do(t, http.MethodPost, "/api/appointments", memberToken, map[string]any{
		"coachId":     coach.ID,
		"scheduledAt": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status)
	apptID := int64(body["data"].(map[string]any)["id"].(float64))

	path := "/api/appointments/" + itoa(apptID) + "/status"
	status, _ = s.do(t, http.MethodPatch, path, memberToken, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPatch, path, coachToken, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", body["data"].(map[string]any)["status"])

	status, body = s.do(t, http.MethodGet, "/api/coach/members", coachToken, nil)
	require.Equal(t, http.StatusOK, status)
	members := body["data"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, float64(member.ID), members[0].(map[string]any)["id"])

	status, _ = s.do(t, http.MethodPost, "/api/chat/messages", memberToken, map[string]any{
		"receiverId": coach.ID,
		"content":    "see you then",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodGet, "/api/chat/messages/"+itoa(member.ID), coachToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodGet, "/api/chat/messages/abc", coachToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthRoutes(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	s := newTestServer(t, map[string]handlers.Pinger{"postgres": ok, "redis": ok})
	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	s = newTestServer(t, map[string]handlers.Pinger{"postgres": ok, "redis": down})
	status, body := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "connection refused", body["errors"].(map[string]any)["redis"])
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
