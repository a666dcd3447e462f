package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"IncidentScanner/internal/config"
	"IncidentScanner/internal/detector"
	"IncidentScanner/internal/domain"
	"IncidentScanner/internal/infrastructure/cvstore"
	"IncidentScanner/internal/infrastructure/filesource"
	"IncidentScanner/internal/infrastructure/report"
	"IncidentScanner/internal/infrastructure/scheduler"
	"IncidentScanner/internal/infrastructure/storage"
	"IncidentScanner/internal/infrastructure/telegram"
	"IncidentScanner/internal/logging"
	"IncidentScanner/internal/ports"
	"IncidentScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance. The incident ledger is only
// wired when a database DSN is configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	detectors, err := detector.DefaultRegistry().Select(cfg.Detection.Enabled)
	if err != nil {
		return nil, fmt.Errorf("select detectors: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	var incidents ports.IncidentRepository
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		a.db = db
		incidents = repo
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var reports ports.ReportWriter
	if cfg.Output.Dir != "" {
		reports = report.NewFileWriter(cfg.Output.Dir)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Records:   filesource.NewManifestSource(cfg.Inputs.FilesJSON, cfg.Inputs.FilesLastWeekdayJSON),
		CVs:       cvstore.NewDirectoryStore(cfg.Inputs.CVDir),
		Reports:   reports,
		Incidents: incidents,
		Notifier:  notifier,
		Detectors: detectors,
		Policy:    policyFromConfig(cfg.Detection),
		Workers:   cfg.Workers.Sources,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	return a, nil
}

// Run performs a single pipeline execution for day.
func (a *Application) Run(ctx context.Context, day time.Time) (domain.RunSummary, error) {
	return a.pipeline.ProcessDay(ctx, day)
}

// Serve runs the pipeline daily until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver, err := scheduler.NewDailyScheduler(a.cfg.Scheduler.RunAt, a.cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"run_at", a.cfg.Scheduler.RunAt,
		"timezone", a.cfg.Scheduler.Timezone,
		"next_run", driver.NextRun(time.Now()),
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func policyFromConfig(d config.DetectionConfig) detector.Policy {
	return detector.Policy{
		UrgentEmptyPerEntity: d.UrgentEmptyPerEntity,
		LateThreshold:        d.LateThreshold(),
		LagToleranceDays:     d.LagToleranceDays,
		DailyTotalRatio:      d.DailyTotalRatio,
		BandCushion:          d.BandCushion,
	}
}
