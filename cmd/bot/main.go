package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"max.ks1230/expenses-bot/internal/clients/cache"
	"max.ks1230/expenses-bot/internal/clients/kafka"
	"max.ks1230/expenses-bot/internal/clients/tg"
	"max.ks1230/expenses-bot/internal/config"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/interaction"
	"max.ks1230/expenses-bot/internal/model/messages"
	"max.ks1230/expenses-bot/internal/model/scheduler"
	"max.ks1230/expenses-bot/internal/model/storage"
	"max.ks1230/expenses-bot/internal/server"
	"max.ks1230/expenses-bot/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

type userStorage interface {
	GetByID(ctx context.Context, id int64) (user.Record, error)
	SaveByID(ctx context.Context, id int64, rec user.Record) error
	GetAll(ctx context.Context) (map[int64]user.Record, error)
}

func main() {
	logger.Info("Bot init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}

	traceCloser, err := tracing.Init("expenses-bot")
	if err != nil {
		logger.Fatal("failed to init tracing:", zap.Error(err))
	}
	defer func() { _ = traceCloser.Close() }()

	client, err := tg.New(conf.Telegram())
	if err != nil {
		logger.Fatal("failed to init client:", zap.Error(err))
	}

	var db userStorage
	if conf.Postgres().Enabled() {
		db, err = storage.NewPostgresStorage(conf.Postgres())
		if err != nil {
			logger.Fatal("failed to init postgres:", zap.Error(err))
		}
	} else {
		logger.Info("postgres is not configured, records will not survive a restart")
		db = storage.NewInMemStorage()
	}

	var replyCache messages.ReplyCache
	if len(conf.Memcached().Hosts()) > 0 {
		replyCache, err = cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcache:", zap.Error(err))
		}
	}

	msgService := messages.NewService(client, db, interaction.NewTracker(), replyCache, conf.App())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if len(conf.Kafka().Brokers()) > 0 {
		producer, err := kafka.NewProducer(conf.Kafka())
		if err != nil {
			logger.Fatal("failed to init kafka producer:", zap.Error(err))
		}
		defer producer.Close()

		go scheduler.New(conf.App(), producer).Run(ctx)
	} else {
		logger.Info("kafka is not configured, scheduled reports are off")
	}

	srv := server.New(conf.App().Port())
	go srv.Start()

	logger.Info("Bot init - end")

	client.ListenUpdates(ctx, msgService)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
