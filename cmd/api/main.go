package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Umer-Fazal/pharmacore/internal/accounts"
	"github.com/Umer-Fazal/pharmacore/internal/auth"
	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/http/handlers"
	httpmw "github.com/Umer-Fazal/pharmacore/internal/http/middleware"
	"github.com/Umer-Fazal/pharmacore/internal/mailer"
	"github.com/Umer-Fazal/pharmacore/internal/orders"
	"github.com/Umer-Fazal/pharmacore/internal/payments"
	"github.com/Umer-Fazal/pharmacore/internal/repo/postgres"
	"github.com/Umer-Fazal/pharmacore/internal/secrets"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/config"
	"github.com/Umer-Fazal/pharmacore/pkg/database"
	"github.com/Umer-Fazal/pharmacore/pkg/events"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
	mw "github.com/Umer-Fazal/pharmacore/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var bus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventBus.Close()

		// Notification audit trail: every instance shares one queue so a
		// request is logged exactly once across the deployment.
		err = eventBus.QueueSubscribe(events.NotifySend, "notifications", func(msg *events.Message) {
			logger.Info("Notification dispatched", "subject", msg.Subject, "payload", string(msg.Data))
		})
		if err != nil {
			logger.Warn("Failed to subscribe to notification events", "error", err)
		}
		bus = eventBus
	}

	cipher, err := secrets.NewFieldCipher(cfg.Crypto.FieldKey, cfg.Crypto.FieldIV)
	if err != nil {
		logger.Error("Invalid field encryption key", "error", err)
		os.Exit(1)
	}

	var emailSvc mailer.Service
	switch {
	case cfg.Email.DevMode:
		emailSvc = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		emailSvc = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		emailSvc = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	var provider payments.Provider = payments.CashProvider{}
	if cfg.Stripe.SecretKey != "" {
		provider = payments.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.Currency)
	}

	// Repositories
	accountRepo := postgres.NewAccountRepo(pool)
	patientRepo := postgres.NewPatientRepo(pool, cipher)
	inventoryRepo := postgres.NewInventoryRepo(pool)
	orderRepo := postgres.NewOrderRepo(pool)

	// Services
	sessions := session.NewStore(rdb, cfg.Auth.InactivityTimeout)
	authSvc := auth.NewService(accountRepo, sessions, emailSvc, bus, cfg.Auth.OTPTTL, cfg.Auth.OTPMaxAttempts)
	accountSvc := accounts.NewService(accountRepo, patientRepo)
	engine := orders.NewEngine(inventoryRepo, orderRepo, sessions, bus, provider)

	// Handlers
	manager := httpmw.NewSessionManager(sessions, cfg.Auth.CookieName)
	authHandler := handlers.NewAuthHandler(authSvc, sessions, manager)
	ordersHandler := handlers.NewOrdersHandler(engine, patientRepo)
	accountsHandler := handlers.NewAccountsHandler(accountSvc)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(manager.Middleware)
		r.Use(httpmw.RequireCSRF)

		r.Get("/csrf", authHandler.CSRFToken)
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireRoles())
			r.Get("/medicines", ordersHandler.ListMedicines)
		})

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireRoles(domain.RolePatient))
			r.Mount("/cart", ordersHandler.CartRoutes())
			r.Post("/orders", ordersHandler.Checkout)
			r.Get("/orders/confirmation", ordersHandler.Confirmation)
			r.Get("/profile", accountsHandler.Profile)
			r.Put("/profile", accountsHandler.UpdateProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireRoles(domain.RoleAdmin, domain.RoleStaff))
			r.Get("/orders", ordersHandler.ListOrders)
			r.Patch("/orders/{orderID}/status", ordersHandler.UpdateStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireRoles(domain.RoleAdmin))
			r.Post("/accounts", accountsHandler.CreateAccount)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting pharmacore API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
