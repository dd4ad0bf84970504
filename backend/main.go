package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"teatracker/m/internal/api"
	"teatracker/m/internal/config"
	"teatracker/m/internal/database"
	"teatracker/m/internal/ledger"
	"teatracker/m/internal/migrations"
	"teatracker/m/internal/mirror"
	"teatracker/m/internal/mirror/mongo"
	"teatracker/m/internal/mirror/postgres"
	"teatracker/m/internal/seed"
	"teatracker/m/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	st := sqlite.New(db)

	remote := openMirror(cfg.Mirror, logger)
	defer remote.Close()

	syncer := mirror.NewSyncer(st, remote, logger)
	svc := ledger.NewService(st, ledger.WithLogger(logger), ledger.WithSyncTrigger(syncer))

	if cfg.SeedSalesCSV != "" {
		if _, err := seed.LoadSales(context.Background(), svc, cfg.SeedSalesCSV, logger); err != nil {
			logger.Error("sales seed failed", "error", err)
		}
	}

	handler := api.New(svc, syncer, api.Auth{
		Secret:       cfg.Secret,
		OwnerID:      cfg.OwnerID,
		PasswordHash: cfg.OwnerPasswordHash,
	}, logger)

	logger.Info("tea sales tracker starting", "port", cfg.HTTPPort, "mirror", syncer.Configured())
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openMirror connects the configured remote store. Any failure leaves
// the tracker running local-only.
func openMirror(cfg *config.Mirror, logger *slog.Logger) mirror.Mirror {
	if cfg == nil {
		return mirror.Nop{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := database.ConnectPostgres(ctx, cfg.DSN)
		if err != nil {
			logger.Warn("postgres mirror unavailable", "error", err)
			return mirror.Nop{}
		}
		m := postgres.New(pg)
		if err := m.Migrate(ctx); err != nil {
			logger.Warn("postgres mirror unavailable", "error", err)
			_ = m.Close()
			return mirror.Nop{}
		}
		return m
	case config.DriverMongo:
		m, err := mongo.Open(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			logger.Warn("mongo mirror unavailable", "error", err)
			return mirror.Nop{}
		}
		return m
	}
	return mirror.Nop{}
}
