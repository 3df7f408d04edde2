package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftlink/craftlink-backend/api/controllers"
	webhookcontrollers "github.com/craftlink/craftlink-backend/api/controllers/webhooks"
	"github.com/craftlink/craftlink-backend/api/middleware"
	"github.com/craftlink/craftlink-backend/internal/auth"
	"github.com/craftlink/craftlink-backend/internal/notifications"
	"github.com/craftlink/craftlink-backend/internal/payments"
	"github.com/craftlink/craftlink-backend/internal/projects"
	"github.com/craftlink/craftlink-backend/internal/reviews"
	"github.com/craftlink/craftlink-backend/internal/subscriptions"
	"github.com/craftlink/craftlink-backend/pkg/auth/session"
	"github.com/craftlink/craftlink-backend/pkg/config"
	"github.com/craftlink/craftlink-backend/pkg/db"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	"github.com/craftlink/craftlink-backend/pkg/logger"
	"github.com/craftlink/craftlink-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	metricsRegistry *prometheus.Registry,
	authService auth.Service,
	registerService auth.RegisterService,
	projectsService projects.Service,
	subscriptionsService subscriptions.Service,
	paymentsService payments.Service,
	notificationsService notifications.Service,
	reviewsService reviews.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mollie", webhookcontrollers.MollieWebhook(paymentsService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(projectsService, logg))
			r.Post("/", controllers.ProjectCreate(projectsService, logg))
			r.Get("/{projectId}", controllers.ProjectDetail(projectsService, logg))
			r.Delete("/{projectId}", controllers.ProjectDelete(projectsService, logg))
			r.Get("/{projectId}/applicants", controllers.ProjectApplicants(projectsService, logg))
			r.With(middleware.RequireUserType(enums.UserTypeCraftsman, logg)).
				Post("/{projectId}/apply", controllers.ProjectApply(projectsService, logg))
			r.Post("/{projectId}/assign", controllers.ProjectAssign(projectsService, logg))
			r.Post("/{projectId}/complete", controllers.ProjectComplete(projectsService, logg))
		})

		r.Route("/v1/craftsman", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeCraftsman, logg))
			r.Get("/can-apply", controllers.CraftsmanCanApply(projectsService, logg))
			r.Route("/projects", func(r chi.Router) {
				r.Get("/applied", controllers.CraftsmanAppliedProjects(projectsService, logg))
				r.Get("/current", controllers.CraftsmanCurrentProjects(projectsService, logg))
				r.Get("/history", controllers.CraftsmanProjectHistory(projectsService, logg))
			})
		})

		r.Get("/v1/subscriptions/me", controllers.SubscriptionMe(subscriptionsService, logg))

		r.Route("/v1/payments", func(r chi.Router) {
			r.Post("/", controllers.PaymentCreate(paymentsService, logg))
			r.Get("/{reference}", controllers.PaymentDetail(paymentsService, logg))
		})

		r.Route("/v1/users/{userId}", func(r chi.Router) {
			r.Get("/projects", controllers.UserProjects(projectsService, logg))
			r.Get("/payments", controllers.UserPayments(paymentsService, logg))
		})

		r.Route("/v1/reviews", func(r chi.Router) {
			r.Post("/", controllers.ReviewCreate(reviewsService, logg))
		})
		r.Get("/v1/craftsmen/{craftsmanId}/reviews", controllers.CraftsmanReviews(reviewsService, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
