package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relicmirror/relicmirror/internal/api"
	"github.com/relicmirror/relicmirror/internal/buildlist"
	"github.com/relicmirror/relicmirror/internal/config"
	"github.com/relicmirror/relicmirror/internal/database"
	"github.com/relicmirror/relicmirror/internal/hosting"
	"github.com/relicmirror/relicmirror/internal/hosting/github"
	"github.com/relicmirror/relicmirror/internal/logger"
	"github.com/relicmirror/relicmirror/internal/metrics"
	"github.com/relicmirror/relicmirror/internal/mirror"
	"github.com/relicmirror/relicmirror/internal/prune"
	"github.com/relicmirror/relicmirror/internal/retention"
	"github.com/relicmirror/relicmirror/internal/runlog"
	"github.com/relicmirror/relicmirror/internal/scheduler"
	"github.com/relicmirror/relicmirror/internal/scheduler/tasks"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "run one sync and one prune pass, then exit")
	dryRun := flag.Bool("dry-run", false, "force dry-run: classify and report without deleting")
	flag.Parse()

	// .env is optional; real deployments set RELICMIRROR_* directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("list", cfg.Retention.ListPath).
		Msg("starting relicmirror")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	policy := retention.DefaultPolicy()
	if cfg.Retention.PolicyFile != "" {
		policy, err = retention.LoadPolicyFile(cfg.Retention.PolicyFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load retention policy file")
		}
		log.Info().Str("file", cfg.Retention.PolicyFile).Msg("loaded retention policy file")
	}

	m := metrics.New()
	store := buildlist.NewFileStore(cfg.Retention.ListPath, log.Logger)
	runs := runlog.NewService(db.Conn(), log.Logger)

	var hostingClient hosting.Client
	deleter := prune.DeleterFunc(func(context.Context, string) error { return nil })
	if cfg.Mirror.Owner != "" && cfg.Mirror.Repo != "" {
		gh := github.NewClient(github.Config{
			BaseURL: cfg.Mirror.BaseURL,
			Owner:   cfg.Mirror.Owner,
			Repo:    cfg.Mirror.Repo,
			Token:   cfg.Mirror.Token,
		}, log.Logger)
		hostingClient = gh
		deleter = prune.DeleterFunc(gh.DeleteRelease)
	} else {
		log.Warn().Msg("mirror.owner/repo not configured: sync disabled, prune will not delete artifacts")
	}

	pruner := prune.NewService(store, deleter, policy, log.Logger)
	pruner.SetRecorder(runs)
	pruner.SetMetrics(m)

	var syncer *mirror.Service
	if hostingClient != nil {
		syncer = mirror.NewService(store, hostingClient, mirror.NopMaterializer(), log.Logger)
		syncer.SetMetrics(m)
	}

	pruneDry := cfg.Retention.DryRun || *dryRun

	if *once {
		runOnce(syncer, pruner, pruneDry, log)
		return
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if syncer != nil {
		if err := tasks.RegisterSyncTask(sched, syncer, cfg.Mirror.SyncCron); err != nil {
			log.Fatal().Err(err).Msg("failed to register sync task")
		}
	}
	if err := tasks.RegisterPruneTask(sched, pruner, cfg.Retention.PruneCron, pruneDry); err != nil {
		log.Fatal().Err(err).Msg("failed to register prune task")
	}
	sched.Start()

	server := api.NewServer(store, pruner, runs, sched, m, log.Logger)
	go func() {
		if err := server.Start(cfg.Server); err != nil {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("api shutdown failed")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
}

// runOnce is the batch mode: one sync, one prune, exit.
func runOnce(syncer *mirror.Service, pruner *prune.Service, dryRun bool, log *logger.Logger) {
	ctx := context.Background()

	if syncer != nil {
		if err := syncer.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("mirror sync failed")
		}
	}

	report, err := pruner.Run(ctx, dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("prune pass failed")
	}

	log.Info().
		Str("runId", report.RunID).
		Bool("dryRun", report.DryRun).
		Int("kept", report.Kept).
		Int("removed", report.Removed).
		Int("failedDeletes", len(report.FailedDeletes)).
		Msg("prune pass complete")
}
