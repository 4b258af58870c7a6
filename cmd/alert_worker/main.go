// The alert_worker checks every budget on a cron cadence and emails users
// who crossed their monthly threshold. Safe to run alongside the API server;
// the month gate on each budget keeps duplicate runs harmless.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dompet/mail"
	"dompet/pkg/alert"
	"dompet/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Error("DB_DSN is not set")
		os.Exit(1)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("failed to connect postgres database", "error", err)
		os.Exit(1)
	}

	mailer, err := mail.NewFromEnv()
	if err != nil {
		logger.Error("mailer configuration invalid", "error", err)
		os.Exit(1)
	}

	evaluator := alert.NewEvaluator(store.New(db), mailer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func() {
		sent, err := evaluator.Run(ctx)
		if err != nil {
			logger.Error("budget alert run failed", "error", err)
			return
		}
		logger.Info("budget alert run complete", "alerts_sent", sent)
	}

	// Run once on startup so a restart inside an over-budget month still alerts.
	logger.Info("Starting alert-worker, running initial check...")
	runOnce()

	spec := os.Getenv("ALERT_CRON")
	if spec == "" {
		spec = "0 */6 * * *" // every 6 hours
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, runOnce); err != nil {
		logger.Error("invalid ALERT_CRON expression", "spec", spec, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Budget alert schedule active", "cron", spec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	<-scheduler.Stop().Done()
	logger.Info("alert-worker shutdown complete")
}
