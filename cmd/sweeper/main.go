package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/config"
	"github.com/smarttransit/seat-booking-engine/internal/database"
	"github.com/smarttransit/seat-booking-engine/internal/services"
)

// One-shot expiry sweep against the Postgres store, for cron jobs. It may run
// beside live servers: booking writes are guarded on the row read, so a
// booking confirmed meanwhile is skipped rather than cancelled.
func main() {
	var (
		dbURLFlag string
		batchSize int
		timeout   time.Duration
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&batchSize, "batch-size", 500, "maximum holds and bookings examined per pass")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall time limit")
	flag.Parse()

	// Optional .env so secrets stay off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}
	db, err := database.NewConnection(dbCfg, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store := database.NewPostgresStore(db.DB)
	sweep := services.NewExpirySweepService(store, services.NewScheduleLocks(), time.Minute, batchSize, logger)

	result := sweep.RunOnce(ctx)
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		log.Fatalf("failed to write result: %v", err)
	}
	if result.Failures > 0 {
		os.Exit(1)
	}
}
