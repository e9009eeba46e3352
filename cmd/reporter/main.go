package main

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"max.ks1230/expenses-bot/internal/clients/kafka"
	"max.ks1230/expenses-bot/internal/clients/tg"
	"max.ks1230/expenses-bot/internal/config"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/reports"
	"max.ks1230/expenses-bot/internal/model/storage"
	"max.ks1230/expenses-bot/internal/tracing"
)

func main() {
	logger.Info("Reporter init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}

	traceCloser, err := tracing.Init("expenses-reporter")
	if err != nil {
		logger.Fatal("failed to init tracing:", zap.Error(err))
	}
	defer func() { _ = traceCloser.Close() }()

	if !conf.Postgres().Enabled() {
		logger.Fatal("reporter requires postgres to see the bot's records")
	}
	db, err := storage.NewPostgresStorage(conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init postgres:", zap.Error(err))
	}

	client, err := tg.New(conf.Telegram())
	if err != nil {
		logger.Fatal("failed to init client:", zap.Error(err))
	}

	generator := reports.NewGenerator(conf.App(), db)
	sender := reports.NewSender(client)

	// digests go to authorized identities only
	eligible := func(rec user.Record) bool { return rec.Authorized }

	consumer, err := kafka.NewConsumer(conf.Kafka(), generator, sender, eligible)
	if err != nil {
		logger.Fatal("failed to init kafka consumer", zap.Error(err))
	}

	logger.Info("Reporter init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err = consumer.StartConsuming(ctx); err != nil {
		logger.Fatal("failed to start consuming", zap.Error(err))
	}
}
