package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/2beens/ninjatraining/internal/backup"
	"github.com/2beens/ninjatraining/internal/config"
	"github.com/2beens/ninjatraining/internal/db"
	"github.com/2beens/ninjatraining/internal/food"
	"github.com/2beens/ninjatraining/internal/logging"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/internal/workouts"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// journal google drive backup cmd

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file with secrets")
	credentialsFile := flag.String(
		"gd-creds",
		"./ninja-drive-credentials.json",
		"google drive service account credentials json",
	)
	shareWith := flag.String("share-with", "", "email to share the backup files with (read only)")
	logsPath := flag.String("logs-path", "/var/log/ninja-backend/journal-backup.log", "backup logs file path (empty for stdout)")
	reinit := flag.Bool("reinit", false, "reinitialize all again")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Debugf("no env file loaded from [%s]: %s", *envFile, err)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      *logsPath,
		LogToStdout:      *logsPath == "",
		LogLevel:         cfg.LogLevel,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "journal-backup",
	})

	log.Println("starting journal backup ...")

	if *credentialsFile == "" {
		log.Fatalln("google drive credentials json not specified")
	}
	if *reinit {
		log.Println("!! attention: will reinitialize all again...")
	}

	credentialsFileBytes, err := os.ReadFile(*credentialsFile)
	if err != nil {
		log.Fatalf("unable to read credentials file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	otelShutdown, err := tracing.HoneycombSetup(honeycombEnabled, "ninja-journal-backup", nil)
	if err != nil {
		log.Fatalf("tracing setup: %s", err)
	}
	defer otelShutdown()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBPassword:     os.Getenv("NINJA_DB_PASS"),
		TracingEnabled: honeycombEnabled,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	store, err := backup.NewDriveStore(ctx, credentialsFileBytes, *shareWith)
	if err != nil {
		log.Fatalf("failed to create google drive store: %s", err)
	}

	metricsManager := metrics.NewManager("ninja", "journal_backup", prometheus.NewRegistry())
	journalBackup, err := backup.NewJournalBackup(
		ctx,
		store,
		food.NewRepo(dbPool),
		workouts.NewRepo(dbPool),
		metricsManager,
	)
	if err != nil {
		log.Fatalf("failed to create journal backup: %s", err)
	}

	baseTime := time.Now()

	if *reinit {
		count, err := journalBackup.Reinit(ctx, baseTime)
		if err != nil {
			log.Fatalf("reinit failed: %s", err)
		}
		log.Printf("reinit done, %d records backed up", count)
		return
	}

	count, err := journalBackup.DoBackup(ctx, baseTime)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("backup done, %d records backed up", count)
}
