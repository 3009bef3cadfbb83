package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"storedesk/internal/migrate"
	"storedesk/migrations"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	var (
		dsn   = flag.String("dsn", os.Getenv("DB_ADDR"), "PostgreSQL DSN")
		dir   = flag.String("dir", "", "directory holding sql/ and seeds/ (defaults to the embedded files)")
		cmd   = flag.String("cmd", "up", "up | down | status | seed")
		steps = flag.Int("steps", 1, "migrations to roll back with -cmd down")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DB_ADDR")
	}

	var files fs.FS = migrations.FS
	if *dir != "" {
		files = os.DirFS(*dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, files)

	var names []string
	switch *cmd {
	case "up":
		names, err = mgr.Up(ctx)
	case "down":
		names, err = mgr.Down(ctx, *steps)
	case "seed":
		names, err = mgr.Seed(ctx)
	case "status":
		var status []migrate.Migration
		status, err = mgr.Status(ctx)
		for _, m := range status {
			mark := "pending"
			if m.Applied {
				mark = "applied"
			}
			fmt.Printf("%-8s %s\n", mark, m.Name)
		}
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
	for _, n := range names {
		fmt.Printf("%s: %s\n", *cmd, n)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", *cmd, err)
	}
}
