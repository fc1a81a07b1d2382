package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// DefaultSnapshotSchedule is the cron spec used when none is configured.
const DefaultSnapshotSchedule = "@every 1m"

// StatsSource is implemented by Dispatcher.
type StatsSource interface {
	Stats() Stats
}

// SnapshotJob periodically logs connection counts per channel kind.
type SnapshotJob struct {
	source StatsSource
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

// NewSnapshotJob validates spec and prepares the job; call Start to run it.
func NewSnapshotJob(log *slog.Logger, source StatsSource, spec string) (*SnapshotJob, error) {
	if log == nil {
		log = slog.Default()
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSnapshotSchedule
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule: %w", err)
	}
	job := &SnapshotJob{
		source: source,
		cron:   cron.New(cron.WithParser(parser)),
		spec:   spec,
		logger: log.With(slog.String("component", "notify_snapshot")),
	}
	if _, err := job.cron.AddFunc(spec, job.Run); err != nil {
		return nil, fmt.Errorf("schedule snapshot: %w", err)
	}
	return job, nil
}

// Run logs one snapshot.
func (j *SnapshotJob) Run() {
	stats := j.source.Stats()
	attrs := make([]any, 0, len(Kinds))
	for _, kind := range Kinds {
		attrs = append(attrs, slog.Group(kind.String(),
			slog.Int("connections", stats.Connections[kind]),
			slog.Int("recipients", stats.Recipients[kind]),
		))
	}
	j.logger.Info("connection snapshot", attrs...)
}

// Start begins the schedule.
func (j *SnapshotJob) Start() {
	j.cron.Start()
	j.logger.Debug("snapshot job started", slog.String("schedule", j.spec))
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (j *SnapshotJob) Stop() {
	<-j.cron.Stop().Done()
}
