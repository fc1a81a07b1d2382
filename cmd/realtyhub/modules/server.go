package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/realtyhub/realtyhub/internal/config"
	"github.com/realtyhub/realtyhub/internal/handlers"
	"github.com/realtyhub/realtyhub/internal/notify"
	"github.com/realtyhub/realtyhub/internal/server"
	"github.com/realtyhub/realtyhub/internal/users"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServerHandler(handlers.NewPingHandler),
		provideServerHandler(handlers.NewSwaggerHandler),
		provideServerHandler(provideAuthHandler),
		provideServerHandler(handlers.NewUsersHandler),
		provideServerHandler(handlers.NewDocumentsHandler),
		provideServerHandler(provideNotificationsHandler),
		provideServer,
	),
	fx.Invoke(startServer),
)

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideAuthHandler(cfg config.Config, userService *users.Service) (*handlers.AuthHandler, error) {
	expiresIn, err := cfg.Auth.ExpiresIn()
	if err != nil {
		return nil, err
	}
	return handlers.NewAuthHandler(userService, cfg.Auth.JWTSecret, expiresIn), nil
}

func provideNotificationsHandler(cfg config.Config, dispatcher *notify.Dispatcher, admins handlers.AdminChecker) (*handlers.NotificationsHandler, error) {
	timings, err := cfg.Notify.Timings()
	if err != nil {
		return nil, err
	}
	return handlers.NewNotificationsHandler(dispatcher, admins, handlers.StreamConfig{
		StreamOptions: notify.StreamOptions{
			HeartbeatInterval: timings.HeartbeatInterval,
			WriteTimeout:      timings.WriteTimeout,
		},
		BufferSize: cfg.Notify.BufferSize,
		RateLimit:  cfg.Notify.StreamRateLimit,
		Burst:      cfg.Notify.StreamBurst,
	}), nil
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, userService *users.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := userService.EnsureAdmin(ctx, cfg.Admin); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
