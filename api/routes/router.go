package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maiyoury/pkasla/api/controllers"
	paymentcontrollers "github.com/maiyoury/pkasla/api/controllers/payments"
	webhookcontrollers "github.com/maiyoury/pkasla/api/controllers/webhooks"
	"github.com/maiyoury/pkasla/api/middleware"
	"github.com/maiyoury/pkasla/pkg/config"
	"github.com/maiyoury/pkasla/pkg/db"
	"github.com/maiyoury/pkasla/pkg/logger"
	"github.com/maiyoury/pkasla/pkg/redis"
	"github.com/maiyoury/pkasla/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    db.Pinger
	Redis *redis.Client

	Payments      paymentcontrollers.Service
	StripeClient  *stripe.Client
	StripeWebhook webhookcontrollers.StripeWebhookService
	BakongWebhook webhookcontrollers.BakongWebhookService
	AuthRecorder  webhookcontrollers.AuthFailureRecorder
}

// NewRouter mounts the payment API. Webhook routes authenticate with
// provider signatures; everything else under /api/v1 requires a bearer
// token.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.StripeWebhook, params.StripeClient, params.AuthRecorder, logg))
		r.Post("/bakong", webhookcontrollers.BakongWebhook(params.BakongWebhook, cfg.Bakong.WebhookSecret, params.AuthRecorder, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/stripe", paymentcontrollers.CreateCardPayment(params.Payments, logg))
		r.Post("/bakong", paymentcontrollers.CreateQRPayment(params.Payments, logg))
		r.Get("/", paymentcontrollers.List(params.Payments, logg))
		r.Get("/bakong/{transactionId}", paymentcontrollers.CheckQRStatus(params.Payments, logg))
		r.Get("/{transactionId}", paymentcontrollers.Detail(params.Payments, logg))
	})

	return r
}
