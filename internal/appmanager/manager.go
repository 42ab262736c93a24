package appmanager

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"CaseReview/internal/constants"
	"CaseReview/internal/distribute"
	"CaseReview/internal/jobs"
	"CaseReview/internal/logger"
	"CaseReview/internal/serviceiface"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type jobConstructor func(ctx context.Context, cfg map[string]interface{}, deps *Deps) (serviceiface.Job, error)

var jobConstructors = map[string]jobConstructor{
	jobs.JobReport: func(ctx context.Context, cfg map[string]interface{}, deps *Deps) (serviceiface.Job, error) {
		api, err := deps.clioAPI()
		if err != nil {
			return nil, err
		}
		backend, err := deps.backend(ctx)
		if err != nil {
			return nil, err
		}

		c := deps.Config
		report := c.Report
		if v, ok := cfg["master_title"]; ok && v != nil {
			report.MasterTitle = fmt.Sprint(v)
		}
		if v, ok := cfg["owner_title"]; ok && v != nil {
			report.OwnerTitle = fmt.Sprint(v)
		}
		if v, ok := cfg["restrict_to_owners"]; ok && v != nil {
			report.RestrictToOverrides = toBool(v)
		}
		if v, ok := cfg["allocate"]; ok && v != nil {
			report.Allocate = toBool(v)
		}

		dist := distribute.New(backend, distribute.Options{
			MasterFolder:        c.Storage.MasterFolder,
			MasterTitle:         report.MasterTitle,
			OwnerTitle:          report.OwnerTitle,
			OwnerBaseFolder:     c.Storage.OwnerBaseFolder,
			ScratchDir:          c.ScratchDir,
			Overrides:           deps.owners(),
			RestrictToOverrides: report.RestrictToOverrides,
		}, deps.logger())
		return jobs.NewReportJob(api, dist, c.Cycle, jobs.ReconcileOptions(report), deps.logger()), nil
	},
	jobs.JobSync: func(ctx context.Context, cfg map[string]interface{}, deps *Deps) (serviceiface.Job, error) {
		path := deps.WorkbookPath
		if v, ok := cfg["file"]; ok && v != nil && path == "" {
			path = fmt.Sprint(v)
		}
		if path == "" {
			return nil, fmt.Errorf("%w: sync needs a workbook path", constants.ErrConfig)
		}
		dryRun := deps.DryRun
		if v, ok := cfg["dry_run"]; ok && v != nil {
			dryRun = dryRun || toBool(v)
		}
		api, err := deps.clioAPI()
		if err != nil {
			return nil, err
		}
		return jobs.NewSyncJob(api, path, dryRun, deps.logger()), nil
	},
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(t, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}
	default:
		return toInt(v) != 0
	}
	return false
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	jobs     []serviceiface.Job
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
		jobs:     make([]serviceiface.Job, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
	if l, ok := s.(*logger.LoggerService); ok {
		logger.SetGlobalLogger(l)
	}
}

func (am *AppManager) RegisterJob(j serviceiface.Job) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.jobs = append(am.jobs, j)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, service := range am.services {
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// RunAll runs the registered jobs in order and stops at the first failure.
func (am *AppManager) RunAll(ctx context.Context) error {
	am.mu.Lock()
	queue := append([]serviceiface.Job(nil), am.jobs...)
	am.mu.Unlock()

	log := logger.L()
	for _, job := range queue {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("job starting", zap.String("job", job.Name()))
		if err := job.Run(ctx); err != nil {
			log.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
			return fmt.Errorf("job %s: %w", job.Name(), err)
		}
		log.Info("job finished", zap.String("job", job.Name()))
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type JobSequencer struct {
	Jobs []JobConfig `yaml:"jobs"`
}

type JobConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

// Enabled is true unless the job's config sets enabled to a false value.
func (c JobConfig) Enabled() bool {
	v, ok := c.Config["enabled"]
	return !ok || v == nil || toBool(v)
}

// LoadJobSequence reads the jobs: list from path, sorted by start_order. A
// missing file yields no jobs.
func LoadJobSequence(path string) ([]JobConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var seq JobSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", constants.ErrConfig, path, err)
	}

	sort.SliceStable(seq.Jobs, func(i, j int) bool {
		return seq.Jobs[i].StartOrder < seq.Jobs[j].StartOrder
	})
	return seq.Jobs, nil
}

// AutoRegisterJobs builds and registers every enabled job in configs.
func (am *AppManager) AutoRegisterJobs(ctx context.Context, configs []JobConfig, deps *Deps) error {
	for _, jc := range configs {
		if !jc.Enabled() {
			continue
		}
		constructor, ok := jobConstructors[jc.Name]
		if !ok {
			return fmt.Errorf("%w: "+constants.ErrUnknownJob, constants.ErrConfig, jc.Name)
		}
		job, err := constructor(ctx, jc.Config, deps)
		if err != nil {
			return fmt.Errorf("build job %s: %w", jc.Name, err)
		}
		am.RegisterJob(job)
	}
	return nil
}

/*
Example casereview.yaml:
jobs:
	- name: report
		start_order: 1
		config:
			restrict_to_owners: false
	- name: sync
		start_order: 2
		config:
			enabled: false
			file: ./edited.xlsx
			dry_run: true
*/

func (am *AppManager) jobByName(name string) serviceiface.Job {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, j := range am.jobs {
		if j.Name() == name {
			return j
		}
	}
	return nil
}
