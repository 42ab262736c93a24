package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"CaseReview/internal/appmanager"
	"CaseReview/internal/clio"
	"CaseReview/internal/config"
	"CaseReview/internal/jobs"
	"CaseReview/internal/logger"
)

func main() {
	envPath := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	configPath := flag.String("config", "", "YAML file with jobs, owners and endpoints (default $CASEREVIEW_CONFIG)")
	jobName := flag.String("job", "", "run a single job: report or sync (default: the jobs listed in the YAML file)")
	workbook := flag.String("file", "", "edited workbook for the sync job (.xlsx or .xls)")
	dryRun := flag.Bool("dry-run", false, "sync: log the changes without writing to Clio")
	flag.Parse()

	// Load .env for local dev; the real environment wins.
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring %s: %v", *envPath, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	if *configPath != "" {
		cfg.ConfigFile = *configPath
	}
	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		log.Fatal("failed to load config file: ", err)
	}

	manager := appmanager.NewAppManager()
	logSvc := logger.NewLoggerService(cfg.Log, uuid.NewString())
	manager.RegisterService(logSvc)
	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start: ", err)
	}
	os.Exit(run(manager, cfg, file, logSvc.Logger(), *jobName, *workbook, *dryRun))
}

func run(manager *appmanager.AppManager, cfg *config.Config, file *config.File, zl *zap.Logger, jobName, workbook string, dryRun bool) int {
	defer func() {
		if err := manager.StopAll(); err != nil {
			log.Print("failed to stop: ", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sequence, err := jobSequence(cfg.ConfigFile, jobName)
	if err != nil {
		zl.Error("could not read job sequence", zap.Error(err))
		return 1
	}

	deps := &appmanager.Deps{
		Config:       cfg,
		File:         file,
		Log:          zl,
		OnRefresh:    exportCredential,
		WorkbookPath: workbook,
		DryRun:       dryRun,
	}
	if err := manager.AutoRegisterJobs(ctx, sequence, deps); err != nil {
		zl.Error("could not build jobs", zap.Error(err))
		return 1
	}
	if err := manager.RunAll(ctx); err != nil {
		zl.Error("run failed", zap.Error(err))
		return 1
	}
	logger.GlobalLogger.LogAudit("run complete")
	return 0
}

// jobSequence returns the single job named on the command line, else the
// YAML jobs list, else the report job alone.
func jobSequence(path, jobName string) ([]appmanager.JobConfig, error) {
	if jobName != "" {
		return []appmanager.JobConfig{{Name: jobName}}, nil
	}
	seq, err := appmanager.LoadJobSequence(path)
	if err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return []appmanager.JobConfig{{Name: jobs.JobReport}}, nil
	}
	return seq, nil
}

// exportCredential mirrors rotated tokens into the CLIO_* variables.
func exportCredential(c clio.Credential) {
	os.Setenv("CLIO_ACCESS_TOKEN", c.AccessToken)
	os.Setenv("CLIO_REFRESH_TOKEN", c.RefreshToken)
	os.Setenv("CLIO_EXPIRES_AT", strconv.FormatInt(c.ExpiresAt.Unix(), 10))
}
