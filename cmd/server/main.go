package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"petshop-backend/internal/config"
	"petshop-backend/internal/cooldown"
	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/events"
	"petshop-backend/internal/handler"
	"petshop-backend/internal/importer"
	"petshop-backend/internal/logging"
	"petshop-backend/internal/mailer"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/pricing"
	"petshop-backend/internal/queue"
	"petshop-backend/internal/repository"
	"petshop-backend/internal/server"
	"petshop-backend/internal/service"
	"petshop-backend/internal/telemetry"
	"petshop-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("", "info", "petshop-api").Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "petshop-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "petshop-api",
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Error("failed to init tracing", "err", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
	}

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	serviceRepo := repository.ServiceRepository{DB: pg}
	appointmentRepo := repository.AppointmentRepository{DB: pg}
	settingsRepo := repository.SettingsRepository{DB: pg, DefaultCapacity: cfg.DefaultSlotCapacity}
	notificationRepo := repository.NotificationRepository{DB: pg}
	txRepo := repository.TransactionRepository{DB: pg}
	financeRepo := repository.FinanceRepository{DB: pg}
	fileRepo := repository.FileRepository{DB: pg}
	outboxRepo := repository.OutboxRepository{DB: pg}
	dashboardRepo := repository.DashboardRepository{DB: pg}
	store := repository.Store{DB: pg}

	jobs := queue.NewRedisQueue(rdb, "appointments.import", cfg.ImportRetention).WithLease(cfg.ImportLease)

	// services
	validate := service.NewValidator()
	apptValidator := service.AppointmentValidator{V: validate, Grid: true}
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Settings: settingsRepo, Validate: validate, Logger: logger}
	collaboratorSvc := service.CollaboratorService{
		Users:     userRepo,
		Settings:  settingsRepo,
		Cooldown:  cooldown.New(rdb, cfg.EmailCooldown, "cooldown:invite"),
		Mailer:    mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, logger),
		Validate:  validate,
		ClientURL: cfg.ClientURL,
		InviteTTL: cfg.InviteTTL,
		Logger:    logger,
	}
	catalogSvc := service.CatalogService{Services: serviceRepo, Validate: validate}
	appointmentSvc := service.AppointmentService{
		Appointments:  appointmentRepo,
		Services:      serviceRepo,
		Settings:      settingsRepo,
		UoW:           store,
		Pricing:       pricing.Engine{Catalog: serviceRepo},
		Validator:     apptValidator,
		Policy:        service.StatusPolicy(cfg.StatusTransitionPolicy),
		RejectPast:    cfg.RejectPastAppointments,
		PaymentMethod: domain.PaymentMethod(cfg.DefaultPaymentMethod),
		Logger:        logger,
	}
	importSvc := service.ImportService{Files: fileRepo, Queue: jobs, MaxAttempts: cfg.ImportMaxAttempts, Logger: logger}
	publicSvc := service.PublicService{Settings: settingsRepo, Appointments: appointmentRepo}
	ledgerSvc := service.LedgerService{Transactions: txRepo, Finance: financeRepo, Validate: validate}

	// handlers
	healthHandler := handler.HealthHandler{Checks: map[string]ports.HealthChecker{
		"postgres": pg,
		"redis":    jobs,
	}}
	authHandler := handler.AuthHandler{Service: &authSvc}
	collaboratorHandler := handler.CollaboratorHandler{Service: &collaboratorSvc}
	publicHandler := handler.PublicHandler{Service: publicSvc}
	serviceHandler := handler.ServiceHandler{Catalog: catalogSvc}
	appointmentHandler := handler.AppointmentHandler{Service: appointmentSvc}
	importHandler := handler.ImportHandler{Imports: importSvc, MaxBytes: cfg.ImportMaxBytes}
	settingsHandler := handler.SettingsHandler{Repo: settingsRepo, Validate: validate}
	notificationHandler := handler.NotificationHandler{Repo: notificationRepo}
	transactionHandler := handler.TransactionHandler{Ledger: &ledgerSvc}
	financeHandler := handler.FinanceHandler{Ledger: &ledgerSvc}
	dashboardHandler := handler.DashboardHandler{Repo: dashboardRepo}

	router := server.NewRouter(cfg, logger, healthHandler, authHandler, collaboratorHandler, publicHandler,
		serviceHandler, appointmentHandler, importHandler, settingsHandler, notificationHandler,
		transactionHandler, financeHandler, dashboardHandler)

	var wg sync.WaitGroup
	if cfg.RunWorkers {
		pool := worker.Pool{
			Queue: jobs,
			Processor: importer.Pipeline{
				Files:        fileRepo,
				Services:     serviceRepo,
				Appointments: appointmentRepo,
				UoW:          store,
				Validator:    service.AppointmentValidator{V: validate, PhoneOptional: true},
				Logger:       logger,
			},
			Workers:     cfg.ImportWorkers,
			PollTimeout: 2 * time.Second,
			Logger:      logger,
		}
		if n, err := jobs.RequeueStalled(ctx); err != nil {
			logger.Warn("requeue stalled imports", "err", err)
		} else if n > 0 {
			logger.Info("requeued stalled imports", "count", n)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}

	publisher := &events.Publisher{
		DB:        pg.Pool,
		Outbox:    outboxRepo,
		Brokers:   events.SplitBrokers(cfg.KafkaBrokers),
		PollEvery: cfg.OutboxPollEvery,
		Logger:    logger,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()

	if err := server.Start(ctx, cfg, otelhttp.NewHandler(router, "petshop-api"), logger); err != nil {
		logger.Error("server error", "err", err)
		stop()
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
}
