package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	adminhandler "github.com/luxserv365/guest-concierge/internal/api/handlers/admin"
	bookinghandler "github.com/luxserv365/guest-concierge/internal/api/handlers/booking"
	guesthandler "github.com/luxserv365/guest-concierge/internal/api/handlers/guest"
	"github.com/luxserv365/guest-concierge/internal/api/router"
	"github.com/luxserv365/guest-concierge/internal/api/server"
	"github.com/luxserv365/guest-concierge/internal/config"
	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/photostore"
	welcomemsg "github.com/luxserv365/guest-concierge/internal/rabbitmq/handlers/welcome"
	"github.com/luxserv365/guest-concierge/internal/rabbitmq/queue"
	bookingrepo "github.com/luxserv365/guest-concierge/internal/repository/booking"
	requestrepo "github.com/luxserv365/guest-concierge/internal/repository/request"
	adminsvc "github.com/luxserv365/guest-concierge/internal/service/admin"
	analyticssvc "github.com/luxserv365/guest-concierge/internal/service/analytics"
	bookingsvc "github.com/luxserv365/guest-concierge/internal/service/booking"
	requestsvc "github.com/luxserv365/guest-concierge/internal/service/request"
	"github.com/luxserv365/guest-concierge/internal/worker"
	"github.com/luxserv365/guest-concierge/pkg/email"
	"github.com/luxserv365/guest-concierge/pkg/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Retries, cfg.RabbitMQ.Pause)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
	}

	q, err := queue.NewWelcomeQueue(ch)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create welcome queue")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	requests := requestrepo.NewRepository(db)
	bookings := bookingrepo.NewRepository(db)

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
	}

	emailClient := email.NewClient(
		cfg.Email.SMTPHost,
		smtpPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
		cfg.Email.FromName,
	)
	telegramClient := telegram.NewClient(cfg.Telegram.Token)

	photos, err := photostore.NewDiskStore(cfg.Photos.Dir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open photo store")
	}

	routes := map[string]requestsvc.Route{
		"email":    {Notifier: emailClient, To: cfg.Email.StaffInbox},
		"telegram": {Notifier: telegramClient, To: cfg.Telegram.ChatID},
	}

	types := model.NewRequestTypeSet(cfg.Requests.Types)

	requestService := requestsvc.NewService(requests, photos, routes, rdb, types, cfg.Notify.Timeout)
	triageService := adminsvc.NewService(requests, emailClient, rdb)
	analyticsService := analyticssvc.NewService(requests)
	bookingService := bookingsvc.NewService(bookings, q, emailClient)

	guestHandler := guesthandler.NewHandler(requestService, photos, val, cfg)
	adminHandler := adminhandler.NewHandler(triageService, analyticsService, val, cfg)
	bookingHandler := bookinghandler.NewHandler(bookingService, val, cfg)

	messageHandler := welcomemsg.NewHandler(bookingService)
	greeter := worker.NewGreeter(q, messageHandler, bookingService)

	go greeter.Run(ctx, cfg.Retry, cfg.Workers.Count)

	r := router.New(guestHandler, adminHandler, bookingHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}

	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	if err := ch.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
	}

	if err := conn.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
	}
}
