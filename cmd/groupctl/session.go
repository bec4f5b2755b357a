package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/config"
	"github.com/cuemby/groupctl/pkg/events"
	"github.com/cuemby/groupctl/pkg/journal"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/cuemby/groupctl/pkg/metrics"
	"github.com/cuemby/groupctl/pkg/orchestrator"
	"github.com/cuemby/groupctl/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// Health component names
const (
	componentCredentials = "credentials"
	componentJournal     = "journal"
)

// session holds everything a command run needs. It is opened once before
// the command and closed after it, whatever the result.
type session struct {
	cfg    *config.Config
	logger zerolog.Logger

	broker   *events.Broker
	store    journal.Store
	recorder *journal.Recorder
	tracer   *tracing.Provider
	health   *metrics.HealthChecker
	server   *http.Server

	orch *orchestrator.Orchestrator
}

var current = &session{}

func (s *session) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s.cfg = cfg

	log.Init(cfg.LogConfig())
	s.logger = log.WithComponent("cli")

	s.tracer, err = tracing.New(cmd.Context(), cfg.Tracing, Version)
	if err != nil {
		return err
	}

	s.health = metrics.NewHealthChecker(Version, componentCredentials)
	s.broker = events.NewBroker()
	s.broker.Start()

	noJournal, _ := cmd.Flags().GetBool("no-journal")
	if !noJournal && cfg.JournalPath != "" {
		store, err := journal.NewBoltStore(cfg.JournalPath)
		if err != nil {
			// commands still run without a journal
			s.logger.Warn().Err(err).Str("path", cfg.JournalPath).Msg("Outcome journal unavailable")
			s.health.Set(componentJournal, false, err.Error())
		} else {
			s.store = store
			s.recorder = journal.NewRecorder(store, nil)
			s.recorder.Start(s.broker)
			s.health.Set(componentJournal, true, "")
		}
	}

	if cfg.MetricsAddr != "" {
		s.server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           s.health.Mux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		s.logger.Debug().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	return nil
}

// orchestrator builds the orchestrator on first use so that commands that
// never talk to the API do not need credentials
func (s *session) orchestrator() (*orchestrator.Orchestrator, error) {
	if s.orch != nil {
		return s.orch, nil
	}

	creds, err := client.LoadCredentials(s.cfg.CredentialsFile)
	if err != nil {
		s.health.Set(componentCredentials, false, err.Error())
		return nil, err
	}
	s.health.Set(componentCredentials, true, "")

	c := client.New(client.Config{
		GroupsURL:   s.cfg.APIURL,
		DeployURL:   s.cfg.DeployURL,
		Credentials: creds,
	})

	oc := s.cfg.Orchestrator(c, c)
	oc.Events = s.broker
	oc.Tracer = s.tracer.Tracer()

	s.orch, err = orchestrator.New(oc)
	if err != nil {
		return nil, err
	}
	return s.orch, nil
}

// close releases whatever open got to set up, including after a failed open
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	if s.broker != nil {
		s.broker.Stop()
	}
	if s.recorder != nil {
		s.recorder.Wait()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close journal")
		}
	}

	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}

	*s = session{}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	if flags.Changed("api-url") {
		cfg.APIURL, _ = flags.GetString("api-url")
	}
	if flags.Changed("deploy-url") {
		cfg.DeployURL, _ = flags.GetString("deploy-url")
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile, _ = flags.GetString("credentials")
	}
	if flags.Changed("log-level") {
		raw, _ := flags.GetString("log-level")
		level, err := log.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		cfg.Log.Level = string(level)
	}
	if flags.Changed("json-logs") {
		cfg.Log.JSON, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("journal") {
		cfg.JournalPath, _ = flags.GetString("journal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, _ := flags.GetString("output")
	if format != outputText && format != outputJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return cfg, nil
}
