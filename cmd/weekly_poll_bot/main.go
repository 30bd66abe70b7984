package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db"
	"weekly_poll_bot/internal/db/repositories"
	"weekly_poll_bot/internal/di"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/health"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/ratelimit"
	"weekly_poll_bot/internal/scheduler"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/shutdown"
	tgbot "weekly_poll_bot/internal/tg_bot"
	"weekly_poll_bot/internal/tg_bot/commands"
	"weekly_poll_bot/internal/tg_bot/handlers"
	"weekly_poll_bot/internal/week"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	eventBuffer     = 64
	shutdownTimeout = 10 * time.Second
)

func main() {
	weekFlag := flag.String("week", "", "create the poll for a week (YYYY-Www) after startup")
	replaceFlag := flag.Bool("replace", false, "replace the existing poll of -week in place")
	flag.Parse()

	config, err := configs.LoadWeeklyPollBotConfig()
	logger := di.NewLogger(config.Logger)
	defer func() { _ = logger.Sync() }()

	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}
	logger.Info("config loaded")

	var target *week.Context
	if *weekFlag != "" {
		parsed, ok := week.Parse(*weekFlag)
		if !ok {
			logger.Fatalw("invalid week flag", "week", *weekFlag)
		}
		target = &parsed
	} else if *replaceFlag {
		logger.Fatal("-replace requires -week")
	}

	logger.Info("starting db")
	database, err := db.StartDB(config.DB, config.App.GroupID, logger)
	if err != nil {
		logger.Fatalw("failed to start db", "error", err)
	}
	logger.Info("db started")

	realClock := clock.Real()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry, realClock)

	logger.Info("creating bot")
	api, err := tgbot.NewBotAPI(config.Bot, config.App.IsDevEnvironment())
	if err != nil {
		logger.Fatalw("failed to create bot", "error", err)
	}
	transport, err := tgbot.NewTransport(api, config.Bot, config.App.GroupID, logger)
	if err != nil {
		logger.Fatalw("failed to create transport", "error", err)
	}
	logger.Infow("bot created", "username", api.Self.UserName)

	pollConfig, err := di.NewPollServiceConfig(config)
	if err != nil {
		logger.Fatalw("failed to build poll config", "error", err)
	}

	pollRepository := repositories.NewPollRepository(database)
	voteRepository := repositories.NewVoteRepository(database)
	outboxRepository := repositories.NewOutboxRepository(database)

	outboxService := services.NewOutboxService(config.App.GroupID, config.Outbox, outboxRepository, transport, realClock, m, logger)
	pollService := services.NewPollService(pollConfig, services.PollServiceDeps{
		Polls:      pollRepository,
		Votes:      voteRepository,
		Outbox:     outboxService,
		Transport:  transport,
		Fetcher:    transport,
		Identities: services.NewIdentityResolver(config.Poll.Allowlist, transport, logger),
		Clock:      realClock,
		Metrics:    m,
		Logger:     logger,
	})

	handler := handlers.NewCommandHandler(
		config.App.GroupID,
		config.Commands,
		ratelimit.NewSlidingWindow(realClock, config.Commands.RateWindow, config.Commands.RateLimit),
		logger,
		[]commands.Command{
			commands.NewHelpCommand(config.Commands.Prefix),
			commands.NewStatusCommand(pollService, logger),
			commands.NewPickCommand(pollService, config.Commands.Prefix, logger),
		},
	)

	eventsCh := make(chan events.Event, eventBuffer)

	weekly, err := scheduler.NewWeeklyScheduler(config.Location(), config.Poll.WeeklyCron, eventsCh, realClock, logger)
	if err != nil {
		logger.Fatalw("failed to create scheduler", "error", err)
	}

	state := &health.State{}
	server := health.NewServer(config.HTTP.Addr, health.NewRouter(state, registry), logger)
	server.Start()

	coordinator := shutdown.NewCoordinator()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range signals {
			if !coordinator.Request(sig.String(), shutdown.SignalExitCode(sig)) {
				logger.Infow("shutdown already in progress", "signal", sig.String())
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())

	dispatcher := tgbot.NewDispatcher(
		config.App.GroupID,
		config.Outbox.SendTimeout,
		pollService,
		handler,
		transport,
		state,
		m,
		startupHook(pollService, target, *replaceFlag, logger),
		logger,
	)

	go dispatcher.Run(ctx, eventsCh)
	go func() {
		transport.Run(ctx, eventsCh)
		if ctx.Err() == nil {
			coordinator.Request("telegram update stream closed", shutdown.ExitError)
		}
	}()
	weekly.Start()

	<-coordinator.Done()
	logger.Infow("shutting down", "reason", coordinator.Reason())
	state.SetShuttingDown()

	cancel()
	pollService.Shutdown()
	outboxService.Stop()
	weekly.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("failed to stop http server", "error", err)
	}
	shutdownCancel()

	if err := database.Close(); err != nil {
		logger.Warnw("failed to close db", "error", err)
	}

	code := coordinator.ExitCode()
	logger.Infow("stopped", "exit_code", code)
	_ = logger.Sync()
	os.Exit(code)
}

func startupHook(pollService services.PollService, target *week.Context, replace bool, logger *zap.SugaredLogger) tgbot.StartupHook {
	if target == nil {
		return nil
	}

	return func(ctx context.Context) error {
		create := pollService.CreateForWeek
		if replace {
			create = pollService.Replace
		}

		poll, err := create(ctx, *target)
		if err != nil {
			return err
		}

		logger.Infow("poll created from command line", "poll_id", poll.ID, "week_key", poll.WeekKey, "replace", replace)
		return nil
	}
}
