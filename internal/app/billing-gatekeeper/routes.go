// Package billinggatekeeper предоставляет маршруты для основного приложения.
package billinggatekeeper

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/admin/extendtrial"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/auth/login"
	entlimit "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/entitlement/limit"
	entsection "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/entitlement/section"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/health"
	notificationlist "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/notification/list"
	notificationread "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/notification/read"
	obligationcreate "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/obligation/create"
	obligationlist "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/obligation/list"
	obligationmarkpaid "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/obligation/markpaid"
	otprequest "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/otp/request"
	otpverify "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/otp/verify"
	paymentconfirm "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/payment/confirm"
	registrationcomplete "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/registration/complete"
	registrationstep "github.com/magabrotheeeer/billing-gatekeeper/internal/http/handlers/registration/step"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/auth"
	dueitemsservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/dueitems"
	entitlementservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/entitlement"
	notificationservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/notification"
	registrationservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/registration"
	subscriptionservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/subscription"
)

// Services сервисы, которыми пользуются маршруты приложения.
type Services struct {
	Auth         *authservice.Service
	Subscription *subscriptionservice.Service
	Entitlement  *entitlementservice.Service
	Registration *registrationservice.Service
	DueItems     *dueitemsservice.Service
	Notification *notificationservice.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, maker jwt.Maker, svc *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Post("/register/steps/{n}", registrationstep.New(logger, svc.Registration).ServeHTTP)
		r.Post("/register/complete", registrationcomplete.New(logger, svc.Registration, maker).ServeHTTP)
		r.Post("/otp/request", otprequest.New(logger, svc.Registration).ServeHTTP)
		r.Post("/otp/verify", otpverify.New(logger, svc.Registration).ServeHTTP)

		// Колбэк платёжного шлюза (без аутентификации)
		r.Post("/payments/confirm", paymentconfirm.New(logger, svc.Subscription).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/entitlements/sections/{key}", entsection.New(logger, svc.Entitlement).ServeHTTP)
			r.Get("/entitlements/limits/{key}", entlimit.New(logger, svc.Entitlement).ServeHTTP)
			r.Get("/notifications/list", notificationlist.New(logger, svc.Notification).ServeHTTP)
			r.Post("/notifications/{id}/read", notificationread.New(logger, svc.Notification).ServeHTTP)
			r.Post("/obligations", obligationcreate.New(logger, svc.DueItems).ServeHTTP)
			r.Get("/obligations/list", obligationlist.New(logger, svc.DueItems).ServeHTTP)
			r.Post("/obligations/{id}/paid", obligationmarkpaid.New(logger, svc.DueItems).ServeHTTP)
		})

		// Административная группа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.AdminOnlyMiddleware(logger))
			r.Post("/admin/subscriptions/{id}/extend-trial", extendtrial.New(logger, svc.Subscription).ServeHTTP)
		})
	})

	r.Get("/health", health.New().ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
