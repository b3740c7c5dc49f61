package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/sobrus/chatrelay/internal/agent"
	"github.com/sobrus/chatrelay/internal/config"
	"github.com/sobrus/chatrelay/internal/delivery"
	"github.com/sobrus/chatrelay/internal/handlers"
	"github.com/sobrus/chatrelay/internal/history"
	"github.com/sobrus/chatrelay/internal/logger"
	"github.com/sobrus/chatrelay/internal/media"
	"github.com/sobrus/chatrelay/internal/message"
	"github.com/sobrus/chatrelay/internal/server"
	"github.com/sobrus/chatrelay/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideStore,
			provideHistoryService,
			provideAgentClient,
			provideMediaFetcher,
			provideDeliveryService,
			provideProcessor,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideChatHandler),
			provideServerHandler(provideHistoryHandler),
			provideServerHandler(provideWebhookHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(log *slog.Logger, cfg config.Config) *message.Store {
	return message.NewStore(log, cfg.Mongo)
}

func provideHistoryService(log *slog.Logger, store *message.Store) *history.Service {
	return history.NewService(log, store)
}

func provideAgentClient(cfg config.Config) *agent.Client {
	return agent.NewClient(cfg.Agent)
}

func provideMediaFetcher() *media.Fetcher {
	return media.NewFetcher()
}

func provideDeliveryService(log *slog.Logger, cfg config.Config) *delivery.Service {
	return delivery.NewService(log, cfg.Twilio)
}

func provideProcessor(log *slog.Logger, store *message.Store, agentClient *agent.Client, fetcher *media.Fetcher, deliveryService *delivery.Service) *webhook.Processor {
	return webhook.NewProcessor(log, store, agentClient, fetcher, deliveryService)
}

func providePingHandler(log *slog.Logger, store *message.Store) *handlers.PingHandler {
	return handlers.NewPingHandler(log, store)
}

func provideChatHandler(log *slog.Logger, store *message.Store, agentClient *agent.Client) *handlers.ChatHandler {
	return handlers.NewChatHandler(log, store, agentClient)
}

func provideHistoryHandler(log *slog.Logger, store *message.Store, historyService *history.Service) *handlers.HistoryHandler {
	return handlers.NewHistoryHandler(log, store, historyService)
}

func provideWebhookHandler(log *slog.Logger, processor *webhook.Processor) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, processor)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Config.Server.Addr, params.Logger, params.ServerHandlers)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Mongo.Configured() {
				log.Warn("mongo not configured, conversation log disabled")
			}
			if !cfg.Twilio.Configured() {
				log.Warn("twilio not configured, outbound delivery falls back to twiml")
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Echo().Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
