package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storedesk/docs" // registers the swagger docs
	"storedesk/internal/access"
	"storedesk/internal/account"
	"storedesk/internal/audit"
	"storedesk/internal/auth"
	"storedesk/internal/config"
	"storedesk/internal/domain/auditlog"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/obs"
	"storedesk/internal/ratelimiter"
	"storedesk/internal/tenant"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type principalResolver interface {
	Authenticate(ctx context.Context, header string) (*auth.Principal, error)
}

type accountService interface {
	Login(ctx context.Context, actor audit.Actor, username, password string) (*account.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Logout(ctx context.Context, p *auth.Principal, actor audit.Actor) error
	Me(p *auth.Principal) *account.Profile
	ChangePassword(ctx context.Context, p *auth.Principal, actor audit.Actor, current, next string) error
	UpdateProfile(ctx context.Context, p *auth.Principal, actor audit.Actor, c users.ProfileChanges) (*users.User, error)
}

type tenantService interface {
	CreateStoreAndOwner(ctx context.Context, actor audit.Actor, in tenant.NewStore) (*tenant.Created, error)
	UpdateSubscription(ctx context.Context, actor audit.Actor, storeID string, plan stores.Plan, durationDays *int) (*tenant.SubscriptionResult, error)
	HandleSubscriptionRequest(ctx context.Context, actor audit.Actor, storeID string, d tenant.SubscriptionDecision) (*tenant.SubscriptionResult, error)
	ChangeStatus(ctx context.Context, actor audit.Actor, storeID string, status stores.Status) (*stores.Store, error)
	DeleteStore(ctx context.Context, actor audit.Actor, storeID string) error
	GetStore(ctx context.Context, actor audit.Actor, storeID string) (*stores.Store, error)
	ListStores(ctx context.Context, f stores.Filter) ([]stores.Store, error)
	UpdateStore(ctx context.Context, actor audit.Actor, storeID string, c stores.Changes) (*stores.Store, error)
}

type auditReader interface {
	ListByStore(ctx context.Context, storeID string, limit, offset int) ([]auditlog.Entry, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type application struct {
	config      *config.Config
	logger      *zap.SugaredLogger
	guard       principalResolver
	accounts    accountService
	tenants     tenantService
	tokens      auth.Authenticator
	auditLog    auditReader
	health      pinger
	rateLimiter ratelimiter.Limiter

	// run after the server stops accepting requests, in order
	onShutdown []func(context.Context) error
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(obs.Instrument)
	r.Use(securityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Use(app.BasicAuthMiddleware())
		r.Get("/metrics", obs.Handler().ServeHTTP)
	})
	r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

	if app.config.IsDevelopment() {
		docsURL := fmt.Sprintf("http://%s/swagger/doc.json", app.config.APIURL)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(app.rateLimiterMiddleware)

		r.Get("/health", app.healthCheckHandler)

		r.Route("/auth", func(r chi.Router) {
			// Public routes
			r.Post("/login", app.loginHandler)
			r.Post("/refresh", app.refreshTokenHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Post("/logout", app.logoutHandler)
				r.Get("/me", app.meHandler)
				r.Put("/change-password", app.changePasswordHandler)
				r.Put("/profile", app.updateProfileHandler)
				r.With(app.requireRole(access.RoleSystemOwner)).Post("/register", app.registerStoreHandler)
			})
		})

		r.Route("/stores", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.With(app.requireRole(access.RoleSystemOwner)).Get("/", app.listStoresHandler)
			r.With(app.requireRole(access.RoleSystemOwner)).Post("/", app.createStoreHandler)

			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/", app.getStoreHandler)
				r.With(app.requirePermission("settings", "update")).Put("/", app.updateStoreHandler)
				r.With(app.requireRole(access.RoleSystemOwner)).Put("/subscription", app.updateSubscriptionHandler)
				r.With(app.requireRole(access.RoleSystemOwner)).Post("/subscription-request", app.subscriptionRequestHandler)
				r.With(app.requireRole(access.RoleSystemOwner)).Put("/status", app.updateStoreStatusHandler)
				r.With(app.requireRole(access.RoleSystemOwner)).Delete("/", app.deleteStoreHandler)
			})
		})

		r.With(app.AuthTokenMiddleware, app.requirePermission("reports", "read")).
			Get("/audit", app.listAuditLogsHandler)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.APIURL

	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		err := srv.Shutdown(ctx)
		for _, fn := range app.onShutdown {
			if hookErr := fn(ctx); hookErr != nil {
				app.logger.Warnw("shutdown hook failed", "error", hookErr)
			}
		}
		shutdown <- err
	}()

	app.logger.Infow("server has started", "addr", app.config.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.Addr, "env", app.config.Env)

	return nil
}
