package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/handler"
	"github.com/iliyamo/healing-center/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check, used by
// load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware. Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new access
	// token without rotation.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token or a refresh_token in the body,
	// so it is reachable without JWT middleware.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := protected(e, jwtSecret)
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the public healing service catalog. Listing and
// detail are guest friendly; the slot calendar is computed per service.
// The cache middleware is applied to the listing since it is the hottest
// read path and is not personalized.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/services", h.ListServices, cache)
	// Detail resolves visibility of inactive services for admins, so the
	// optional JWT is attached to pick up an identity when one is present.
	e.GET("/v1/services/:id", h.GetService, middleware.OptionalJWT(jwtSecret))
	e.GET("/v1/services/:id/available-slots", h.AvailableSlots)
}

// RegisterBookings registers the booking lifecycle endpoints. All of them
// require an authenticated session.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	auth := protected(e, jwtSecret)
	auth.POST("/bookings", h.Create)
	auth.POST("/bookings/:id/confirm", h.Confirm)
	auth.POST("/bookings/:id/cancel", h.Cancel)
	auth.GET("/my-bookings", h.MyBookings)
}

// RegisterCourses registers the course catalog and learning endpoints.
// Browse routes are public but personalized when a valid token is present
// (enrollment flags, lesson access, progress), hence the optional JWT.
func RegisterCourses(e *echo.Echo, h *handler.CourseHandler, jwtSecret string) {
	e.GET("/v1/courses", h.List, middleware.OptionalJWT(jwtSecret))
	e.GET("/v1/courses/:id", h.Get, middleware.OptionalJWT(jwtSecret))

	auth := protected(e, jwtSecret)
	auth.POST("/courses/:id/enroll", h.Enroll)
	auth.GET("/my-courses", h.MyCourses)
	auth.POST("/lessons/:id/progress", h.UpdateLessonProgress)
}

// RegisterMembership registers the membership plans, subscriptions and the
// payment ledger endpoints. Plans and payment methods are public reads.
func RegisterMembership(e *echo.Echo, h *handler.MembershipHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/membership/plans", h.ListPlans, cache)
	e.GET("/v1/membership/plans/:id", h.GetPlan)
	e.GET("/v1/payment-methods", h.PaymentMethods, cache)

	auth := protected(e, jwtSecret)
	auth.POST("/membership/subscribe", h.Subscribe)
	auth.POST("/payments/:id/confirm", h.ConfirmPayment)
	auth.POST("/payments/:id/fail", h.FailPayment)
	auth.GET("/my-subscription", h.MySubscription)
	auth.POST("/subscriptions/:id/cancel", h.CancelSubscription)
	auth.GET("/my-payments", h.MyPayments)
}

// RegisterCoupons registers the coupon endpoints. Validation is a dry run
// open to guests during checkout; applying a coupon consumes a use and
// therefore requires a session.
func RegisterCoupons(e *echo.Echo, h *handler.CouponHandler, jwtSecret string) {
	e.POST("/v1/coupons/validate", h.Validate)

	auth := protected(e, jwtSecret)
	auth.POST("/coupons/apply", h.Apply)
}

// RegisterMarketing registers the newsletter and landing page endpoints.
// All of these are public; subscribing is idempotent and the landing page
// endpoints count views and conversions as they are hit.
func RegisterMarketing(e *echo.Echo, h *handler.MarketingHandler) {
	e.POST("/v1/newsletter/subscribe", h.NewsletterSubscribe)
	e.POST("/v1/newsletter/unsubscribe", h.NewsletterUnsubscribe)
	e.GET("/v1/pages/:slug", h.GetLandingPage)
	e.POST("/v1/pages/:slug/convert", h.LandingConvert)
}

// RegisterAdmin registers the administrative surface under /v1/admin. Every
// route requires a valid access token carrying the admin role.
func RegisterAdmin(e *echo.Echo, jwtSecret string,
	catalog *handler.CatalogHandler,
	bookings *handler.BookingHandler,
	courses *handler.CourseHandler,
	membership *handler.MembershipHandler,
	coupons *handler.CouponHandler,
	marketing *handler.MarketingHandler,
) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("admin"))

	admin.POST("/services", catalog.CreateService)
	admin.PUT("/services/:id", catalog.UpdateService)
	admin.POST("/available-slots", catalog.CreateSlot)

	admin.GET("/bookings", bookings.AdminList)

	admin.POST("/courses", courses.AdminCreate)
	admin.PUT("/courses/:id", courses.AdminUpdate)
	admin.POST("/courses/:id/modules", courses.AdminCreateModule)
	admin.POST("/modules/:id/lessons", courses.AdminCreateLesson)

	admin.POST("/membership/plans", membership.AdminCreatePlan)
	admin.GET("/subscriptions", membership.AdminListSubscriptions)
	admin.GET("/payments", membership.AdminListPayments)
	admin.GET("/payments/:id", membership.AdminGetPayment)

	admin.POST("/coupons", coupons.AdminCreate)
	admin.GET("/coupons", coupons.AdminList)

	admin.GET("/newsletter/subscribers", marketing.AdminListSubscribers)
	admin.POST("/campaigns", marketing.AdminCreateCampaign)
	admin.GET("/campaigns", marketing.AdminListCampaigns)
	admin.POST("/landing-pages", marketing.AdminCreateLandingPage)
	admin.GET("/landing-pages", marketing.AdminListLandingPages)
}

// protected builds a /v1 group guarded by JWT authentication and the role
// check shared by every member-facing endpoint.
func protected(e *echo.Echo, jwtSecret string) *echo.Group {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("user", "admin"))
	return g
}
