package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/api"
	"github.com/0xPuncker/jobspec-watcher/internal/config"
	"github.com/0xPuncker/jobspec-watcher/internal/cron"
	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/internal/node"
	"github.com/0xPuncker/jobspec-watcher/internal/notifications"
	"github.com/0xPuncker/jobspec-watcher/internal/poller"
	"github.com/0xPuncker/jobspec-watcher/internal/serializer"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/dimiro1/banner"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

const bannerText = `
{{ .Title "JobSpec Watcher" "" 0 }}
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
		}
	}

	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/config.json", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05-07:00",
	})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Debugf("Node URL: %s", cfg.Node.URL)
	logger.Debugf("Export directory: %s", cfg.Export.OutputDir)

	client := node.NewClient(logger, cfg.Node.URL, cfg.Node.Token,
		config.ParseDuration(cfg.Node.CacheTTL, 5*time.Minute))
	generator := definition.NewGenerator(serializer.New(), logger)

	watchList, err := config.LoadWatchList()
	if err != nil {
		logger.Warnf("Failed to load watch list, no jobs will be watched: %v", err)
		watchList = &types.WatchList{}
	}
	logger.Infof("Watching %d jobs (%d legacy, %d typed)",
		watchList.Len(), len(watchList.Legacy), len(watchList.Typed))

	var notifier *notifications.NotificationService
	slack, err := notifications.NewSlackService(logger, cfg.Slack.WebhookURL)
	if err != nil {
		logger.Warnf("Failed to initialize Slack service: %v", err)
	} else {
		notifier = notifications.NewNotificationService(slack)
	}

	exportJob := cron.NewExportJob(client, generator,
		func() (*types.WatchList, error) { return watchList, nil },
		cfg.Export.OutputDir, logger)

	scheduler := cron.NewScheduler(logger, cfg.Jobs)
	scheduler.RegisterTask(cron.ExportTaskName, func() error {
		start := time.Now()
		err := exportJob.Run()
		if err != nil && notifier != nil {
			if nerr := notifier.SendJobNotification(cron.ExportTaskName, "failed", time.Since(start), err.Error()); nerr != nil {
				logger.WithError(nerr).Error("Failed to send job notification")
			}
		}
		return err
	})

	if err := scheduler.LoadPredefinedJobs(cfg.Jobs.Predefined); err != nil {
		logger.Fatalf("Failed to load predefined jobs: %v", err)
	}

	var pollNotifier poller.Notifier
	if notifier != nil {
		pollNotifier = notifier
	}
	p := poller.New(client, generator, pollNotifier, watchList, logger,
		config.ParseDuration(cfg.Poller.Interval, time.Minute),
		config.ParseDuration(cfg.Poller.Timeout, 30*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go p.Start(ctx)

	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	handler := api.NewHandler(client, generator, scheduler, logger)

	logger.Infof("Server starting on port %s - Press Ctrl+C to stop.", cfg.Server.Port)
	if err := api.StartServer(ctx, handler, cfg.Server); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
	}

	logger.Info("Shutting down...")
	p.Stop()
	scheduler.Stop()
	logger.Info("Server stopped")
}
