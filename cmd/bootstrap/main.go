// Command bootstrap creates the system owner account of a fresh installation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/config"
	"storedesk/internal/db"
	"storedesk/internal/domain/storage"
	"storedesk/internal/identity"
	"storedesk/internal/tenant"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("username", os.Getenv("SYSTEM_OWNER_USERNAME"), "system owner username")
	email := flag.String("email", os.Getenv("SYSTEM_OWNER_EMAIL"), "system owner email (optional)")
	fullName := flag.String("name", "System Owner", "system owner full name")
	flag.Parse()

	// the password is only read from the environment so it stays out of shell history
	password := os.Getenv("SYSTEM_OWNER_PASSWORD")

	if *username == "" || password == "" {
		log.Fatal("SYSTEM_OWNER_USERNAME (or -username) and SYSTEM_OWNER_PASSWORD are required")
	}
	if len(password) < 6 {
		log.Fatal("SYSTEM_OWNER_PASSWORD must be at least 6 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger := zl.Sugar()
	defer logger.Sync()

	pool, err := db.New(cfg.DB.Addr, cfg.DB.MaxConns, cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Fatalw("connecting to database failed", "error", err)
	}
	defer pool.Close()

	provider, err := identity.New(identity.Options{
		Kind:       cfg.Identity.Provider,
		BcryptCost: cfg.Identity.BcryptRounds,
		GoTrueURL:  cfg.Identity.GoTrueURL,
		ServiceKey: cfg.Identity.ServiceKey,
		AnonKey:    cfg.Identity.AnonKey,
	}, pool)
	if err != nil {
		logger.Fatalw("identity provider", "error", err)
	}

	repos := storage.NewContainer(pool)

	recorder := audit.NewRecorder(repos.Audit, logger, audit.Config{BufferSize: 16, WorkerCount: 1})
	recorder.Start()

	svc := tenant.NewService(tenant.Deps{
		Stores:   repos.Stores,
		Users:    repos.Users,
		Roles:    repos.Roles,
		Tx:       repos,
		Identity: provider,
		Audit:    recorder,
		Logger:   logger,
	})

	in := tenant.NewOwner{
		Username: *username,
		Password: password,
		FullName: *fullName,
	}
	if *email != "" {
		in.Email = email
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	owner, err := svc.CreateSystemOwner(ctx, in)

	if stopErr := recorder.Stop(ctx); stopErr != nil {
		logger.Warnw("audit recorder did not drain", "error", stopErr)
	}

	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			fmt.Fprintln(os.Stderr, "nothing to do:", err)
			os.Exit(0)
		}
		logger.Fatalw("creating system owner failed", "error", err)
	}

	fmt.Printf("system owner %q created (id %s)\n", owner.Username, owner.ID)
}
