package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"carehub-backend/internal/app"
	"carehub-backend/internal/config"
	"carehub-backend/internal/jobs"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'resume-cascades', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CareHub Cronjob Runner...", "log_level", cfg.Log.Level)

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Moderation: application.Services.Moderation,
		Payments:   application.Services.Payments,
		Analytics:  application.Services.Analytics,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			application.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and reports whether it succeeded
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "resume-cascades":
		return jobRunner.ResumeBlacklistCascades()
	case "expire-payment-intents":
		return jobRunner.ExpirePaymentIntents()
	case "reconcile-balances":
		return jobRunner.ReconcileBalances()
	case "warm-analytics":
		return jobRunner.WarmAnalytics()
	case "all":
		return jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - resume-cascades\n")
		fmt.Printf("  - expire-payment-intents\n")
		fmt.Printf("  - reconcile-balances\n")
		fmt.Printf("  - warm-analytics\n")
		fmt.Printf("  - all\n")
		return false
	}
}
