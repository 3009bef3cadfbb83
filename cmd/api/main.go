package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"storedesk/internal/account"
	"storedesk/internal/audit"
	"storedesk/internal/auth"
	"storedesk/internal/config"
	"storedesk/internal/db"
	"storedesk/internal/domain/storage"
	"storedesk/internal/identity"
	"storedesk/internal/mailer"
	"storedesk/internal/obs"
	"storedesk/internal/ratelimiter"
	"storedesk/internal/tenant"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	// Configure the encoder to be a console encoder with color
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "0.3.0"

//	@title			StoreDesk API
//	@description	Multi-tenant store management: authentication, authorization and tenant lifecycle.

//	@contact.name	StoreDesk Support
//	@contact.email	support@storedesk.app

//	@BasePath					/api
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(cfg.DB.Addr, cfg.DB.MaxConns, cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	repos := storage.NewContainer(pool)

	// Redis backs session revocation and the shared rate limiter. Without it
	// both fall back: no revocation, in-memory limiting.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatalw("redis unreachable", "addr", cfg.Redis.Addr, "error", err)
		}
		defer rdb.Close()
		logger.Info("redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set: logout and store cancellation will not revoke issued tokens")
	}

	provider, err := identity.New(identity.Options{
		Kind:       cfg.Identity.Provider,
		BcryptCost: cfg.Identity.BcryptRounds,
		GoTrueURL:  cfg.Identity.GoTrueURL,
		ServiceKey: cfg.Identity.ServiceKey,
		AnonKey:    cfg.Identity.AnonKey,
	}, pool)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infow("identity provider ready", "provider", cfg.Identity.Provider)

	tokens := auth.NewJWTAuthenticator(auth.TokenConfig{
		Secret:        cfg.Token.Secret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
	}, time.Now)

	var revoker auth.Revoker
	if rdb != nil {
		// a watermark only matters while tokens minted before it can still be valid
		revoker = auth.NewRedisRevoker(rdb, cfg.Token.RefreshTTL)
	}

	recorder := audit.NewRecorder(repos.Audit, logger, audit.DefaultConfig())
	recorder.Start()

	var mail mailer.Client
	if cfg.Mail.Host != "" {
		m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			Username:  cfg.Mail.Username,
			Password:  cfg.Mail.Password,
			FromEmail: cfg.Mail.FromEmail,
		})
		if err != nil {
			logger.Fatal(err)
		}
		mail = m
	}

	contact := tenant.Contact{
		Email:    cfg.Contact.Email,
		Phone:    cfg.Contact.Phone,
		WhatsApp: cfg.Contact.WhatsApp,
	}

	tenantDeps := tenant.Deps{
		Stores:   repos.Stores,
		Users:    repos.Users,
		Roles:    repos.Roles,
		Tx:       repos,
		Identity: provider,
		Audit:    recorder,
		Catalog: tenant.NewCatalog(tenant.PlanPrices{
			FreeTrialDays: cfg.Plans.FreeTrialDays,
			Monthly:       cfg.Plans.Monthly,
			SixMonths:     cfg.Plans.SixMonths,
			Yearly:        cfg.Plans.Yearly,
		}),
		Contact: contact,
		Logger:  logger,
		Mailer:  mail,
		Revoker: revoker,
	}
	accountDeps := account.Deps{
		Users:    repos.Users,
		Identity: provider,
		Tokens:   tokens,
		Audit:    recorder,
		Contact:  contact,
		Logger:   logger,
		Revoker:  revoker,
	}
	guard := &auth.Guard{
		Tokens:     tokens,
		Identities: repos.Users,
		Revoker:    revoker,
		Contact:    contact,
		Logger:     logger,
	}

	// Rate limiter
	var limiter ratelimiter.Limiter
	stopCleanup := make(chan struct{})
	if rdb != nil {
		limiter = ratelimiter.NewRedisFixedWindow(rdb, cfg.RateLimiter.MaxRequests, cfg.RateLimiter.Window, logger)
	} else {
		fw := ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.MaxRequests, cfg.RateLimiter.Window)
		go fw.Cleanup(stopCleanup)
		limiter = fw
	}

	app := &application{
		config:      cfg,
		logger:      logger,
		guard:       guard,
		accounts:    account.NewService(accountDeps),
		tenants:     tenant.NewService(tenantDeps),
		tokens:      tokens,
		auditLog:    repos.Audit,
		health:      repos,
		rateLimiter: limiter,
		onShutdown: []func(context.Context) error{
			recorder.Stop,
			func(context.Context) error {
				close(stopCleanup)
				return nil
			},
		},
	}

	// Metrics
	obs.Init(version)

	// expvar at /debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
			"max_conns":      s.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
