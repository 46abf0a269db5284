package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetly/internal/amqp"
	"budgetly/internal/cli"
	"budgetly/internal/config"
	"budgetly/internal/notify"
	"budgetly/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)

	logger.Info("Starting notify-worker", "queue", cfg.AMQPQueue, "mail_driver", cfg.MailDriver)

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.MailDriver == "ses" {
		ses, err := notify.NewSESMailer(context.Background(), cfg.AWSRegion, cfg.MailFrom)
		if err != nil {
			logger.Error("Failed to initialize SES mailer", "error", err, "region", cfg.AWSRegion)
			os.Exit(1)
		}
		mailer = ses
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
	})

	w := worker.NewNotifyWorker(mailer)
	if err := amqpClient.ConsumeNotifications(ctx, w.HandleNotificationMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
