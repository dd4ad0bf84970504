package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration values.
type Config struct {
	Secret            string
	DatabaseDSN       string
	HTTPPort          string
	OwnerID           string
	OwnerPasswordHash string
	SeedSalesCSV      string
	// Mirror is nil when no remote store is configured, which keeps
	// the ledger purely local.
	Mirror *Mirror
}

// Mirror describes the optional remote store sales are copied to.
type Mirror struct {
	Driver   string
	DSN      string
	Database string
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "teatracker.db"
	}

	owner := os.Getenv("OWNER_ID")
	if owner == "" {
		owner = "owner"
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:            secret,
		DatabaseDSN:       dsn,
		HTTPPort:          port,
		OwnerID:           owner,
		OwnerPasswordHash: os.Getenv("OWNER_PASSWORD_HASH"),
		SeedSalesCSV:      os.Getenv("SEED_SALES_CSV"),
		Mirror:            loadMirror(),
	}
}

func loadMirror() *Mirror {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("MIRROR_DRIVER")))
	if driver == "" {
		return nil
	}
	if driver != DriverPostgres && driver != DriverMongo {
		log.Printf("unknown MIRROR_DRIVER %q, cloud mirror disabled", driver)
		return nil
	}
	m := &Mirror{
		Driver:   driver,
		DSN:      os.Getenv("MIRROR_DSN"),
		Database: os.Getenv("MIRROR_DATABASE"),
	}
	if m.DSN == "" {
		log.Printf("MIRROR_DRIVER set without MIRROR_DSN, cloud mirror disabled")
		return nil
	}
	if m.Database == "" {
		m.Database = "teatracker"
	}
	return m
}
