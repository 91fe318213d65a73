// Command create-admin creates or promotes the admin account.  Flags
// default to ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/logging"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.IsDevelopment(), cfg.LogLevel)
	log := logging.Logger()

	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	name := flag.String("name", envOr("ADMIN_NAME", "Administrator"), "admin full name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal().Msg("email and password are required (flags or ADMIN_EMAIL/ADMIN_PASSWORD)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	id, err := repository.NewUserRepo(db).EnsureAdmin(ctx, *name, *email, *password, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create admin")
	}
	log.Info().Uint64("user_id", id).Str("email", *email).Msg("admin account ready")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
