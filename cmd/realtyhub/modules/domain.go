package modules

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/realtyhub/realtyhub/internal/config"
	"github.com/realtyhub/realtyhub/internal/documents"
	"github.com/realtyhub/realtyhub/internal/handlers"
	"github.com/realtyhub/realtyhub/internal/notify"
	"github.com/realtyhub/realtyhub/internal/users"
)

var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		users.NewService,
		provideAdminDirectory,
		provideAdminChecker,

		provideDispatcher,
		provideNotifier,

		fx.Annotate(documents.NewPGStore, fx.As(new(documents.Store))),
		documents.NewService,

		provideSnapshotJob,
	),
	fx.Invoke(startSnapshotJob),
)

// Admin membership is read from the users table on every admin broadcast.
func provideAdminDirectory(s *users.Service) notify.AdminDirectory {
	return s
}

func provideAdminChecker(s *users.Service) handlers.AdminChecker {
	return s
}

func provideNotifier(d *notify.Dispatcher) notify.Notifier {
	return d
}

func provideDispatcher(log *slog.Logger, cfg config.Config, directory notify.AdminDirectory) (*notify.Dispatcher, error) {
	timings, err := cfg.Notify.Timings()
	if err != nil {
		return nil, err
	}
	return notify.NewDispatcher(log, directory, notify.Options{
		WriteTimeout:     timings.WriteTimeout,
		DirectoryTimeout: timings.DirectoryTimeout,
	}), nil
}

func provideSnapshotJob(log *slog.Logger, cfg config.Config, dispatcher *notify.Dispatcher) (*notify.SnapshotJob, error) {
	return notify.NewSnapshotJob(log, dispatcher, cfg.Notify.SnapshotSchedule)
}

func startSnapshotJob(lc fx.Lifecycle, job *notify.SnapshotJob) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			job.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			job.Stop()
			return nil
		},
	})
}
