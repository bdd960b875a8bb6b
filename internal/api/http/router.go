package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smokeking/smokeking-api/internal/api/http/handlers"
	"github.com/smokeking/smokeking-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Membership     *handlers.MembershipHandler
	Coaching       *handlers.CoachingHandler
	Survey         *handlers.SurveyHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Every protected route names its allowed
// roles explicitly; there is no inheritance between roles.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	guard := func(allowed auth.RoleSet, h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRoles(allowed), h}
	}

	api := app.Group("/api")

	api.Post("/auth/register", cfg.Auth.Register)
	api.Post("/auth/login", cfg.Auth.Login)
	api.Get("/auth/me", guard(auth.AnyRole, cfg.Auth.Me)...)
	api.Put("/auth/password", guard(auth.AnyRole, cfg.Auth.ChangePassword)...)
	api.Put("/users/profile", guard(auth.AnyRole, cfg.Auth.UpdateProfile)...)

	api.Get("/membership/plans", cfg.Membership.Plans)
	api.Post("/membership/purchase", guard(auth.GuestOrMember, cfg.Membership.Purchase)...)
	api.Get("/membership/me", guard(auth.GuestOrMember, cfg.Membership.Mine)...)
	api.Post("/membership/cancel", guard(auth.MemberOnly, cfg.Membership.Cancel)...)

	api.Get("/coaches", guard(auth.AnyRole, cfg.Coaching.Coaches)...)
	api.Post("/appointments", guard(auth.MemberOnly, cfg.Coaching.Book)...)
	api.Get("/appointments", guard(auth.MemberOrCoach, cfg.Coaching.ListAppointments)...)
	api.Patch("/appointments/:id/status", guard(auth.MemberOrCoach, cfg.Coaching.UpdateAppointmentStatus)...)
	api.Get("/coach/members", guard(auth.CoachOnly, cfg.Coaching.CoachMembers)...)
	api.Post("/chat/messages", guard(auth.MemberOrCoach, cfg.Coaching.SendMessage)...)
	api.Get("/chat/messages/:partnerId", guard(auth.MemberOrCoach, cfg.Coaching.Conversation)...)

	api.Post("/survey", guard(auth.GuestOrMember, cfg.Survey.Submit)...)
	api.Get("/survey/me", guard(auth.GuestOrMember, cfg.Survey.Mine)...)

	admin := api.Group("/admin")
	admin.Get("/users", guard(auth.AdminOnly, cfg.Admin.ListUsers)...)
	admin.Patch("/users/:id/role", guard(auth.AdminOnly, cfg.Admin.UpdateRole)...)
	admin.Patch("/users/:id/status", guard(auth.AdminOnly, cfg.Admin.UpdateStatus)...)
	admin.Get("/cancellations", guard(auth.AdminOnly, cfg.Membership.ListCancellations)...)
	admin.Post("/cancellations/:id/approve", guard(auth.AdminOnly, cfg.Membership.Approve)...)
	admin.Post("/cancellations/:id/reject", guard(auth.AdminOnly, cfg.Membership.Reject)...)
}
