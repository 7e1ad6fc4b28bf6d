package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"cantiere/internal/gantt"
	"cantiere/internal/repository"
	"cantiere/internal/service"
	"cantiere/pkg/config"
	"cantiere/pkg/logger"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	env       string
	configDir string
	project   string
	driver    string
	strict    bool
	logLevel  string
}

func (o *globalOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.env, "env", config.GetConfigEnv(), "Config environment (local, production, ...)")
	flags.StringVar(&o.configDir, "config-dir", config.GetEnv("CONFIG_DIR", "config"), "Directory holding base.yaml")
	flags.StringVarP(&o.project, "project", "p", "default", "Project id")
	flags.StringVar(&o.driver, "driver", "", "Override storage driver (memory, file, redis, postgres, sqlite)")
	flags.BoolVar(&o.strict, "strict", false, "Fail on unknown task ids")
	flags.StringVar(&o.logLevel, "log-level", "warn", "Log level")
}

// loadConfig falls back to built-in defaults when no base.yaml exists, so the
// CLI works against a local data/ directory out of the box.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.env, o.configDir)
	if errors.Is(err, fs.ErrNotExist) {
		def := config.Default()
		config.OverrideFromEnv(&def)
		cfg, err = &def, nil
	}
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Storage.Driver = o.driver
	}
	if o.strict {
		cfg.Schedule.StrictNotFound = true
	}
	return cfg, nil
}

type session struct {
	cfg     *config.Config
	backend repository.Backend
	ctrl    *gantt.Controller
}

func (s *session) Close() {
	if s.backend != nil {
		s.backend.Close()
	}
}

func (o *globalOptions) open(ctx context.Context) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.NewLogger(o.logLevel)

	backend, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}

	svc := service.NewScheduleService(backend, service.ScheduleOptions{
		KeyPrefix:      cfg.Storage.KeyPrefix,
		StrictNotFound: cfg.Schedule.StrictNotFound,
	}, log)
	ctrl, err := svc.Project(ctx, o.project)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &session{cfg: cfg, backend: backend, ctrl: ctrl}, nil
}
