package app

import (
	"errors"
	"fmt"
	"io"

	prom "github.com/prometheus/client_golang/prometheus"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/dispatch"
	"conductor/internal/events"
	"conductor/internal/metrics"
	"conductor/internal/orchestrator"
	"conductor/internal/remote"
	"conductor/internal/transition"
	"conductor/internal/workspace"
	"conductor/pkg/logging"
)

// Services holds all initialized services used by the application.
//
// The services are initialized in dependency order:
//  1. Remote client and workspace store
//  2. Event sinks and metrics
//  3. Transition workflow, composer and orchestrator
//  4. Dispatcher
type Services struct {
	Remote api.ServiceAPI
	Specs  *workspace.FileStore

	// Events keeps the events of this process, newest last.
	Events  *events.MemorySink
	Emitter *events.Emitter

	Registry *prom.Registry
	Recorder metrics.Recorder

	Refresher    api.Refresher
	Workflow     *transition.Workflow
	Composer     *composer.Composer
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *dispatch.Dispatcher

	closers []io.Closer
}

// InitializeServices creates the services for the loaded configuration in
// cfg.ConductorConfig. Critical failures (remote URL, NATS connection,
// invalid continuation policy) abort initialization.
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg.ConductorConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	conf := cfg.ConductorConfig
	s := &Services{}

	// Step 1: Remote client and workspace store
	if cfg.Remote != nil {
		s.Remote = cfg.Remote
	} else {
		client, err := remote.New(conf.Remote.BaseURL, remote.WithTimeout(conf.Remote.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to create remote client: %w", err)
		}
		s.Remote = client
	}
	s.Specs = workspace.NewFileStore(conf.Workspaces.Dir)

	// Step 2: Event sinks and metrics
	s.Events = &events.MemorySink{}
	sinks := events.MultiSink{s.Events}
	if conf.Events.Log {
		sinks = append(sinks, events.LogSink{})
	}
	if conf.Events.NATS.URL != "" {
		natsSink, err := events.NewNATSSink(conf.Events.NATS.URL, conf.Events.NATS.Subject)
		if err != nil {
			return nil, fmt.Errorf("failed to create event sink: %w", err)
		}
		sinks = append(sinks, natsSink)
		s.closers = append(s.closers, natsSink)
	}
	s.Emitter = events.NewEmitter(sinks)

	s.Registry = prom.NewRegistry()
	s.Recorder = metrics.NewPrometheusRecorder(s.Registry)

	// Step 3: Workflows
	policy, err := composer.ParseContinuationPolicy(conf.Composer.ContinuationPolicy)
	if err != nil {
		return nil, err
	}
	s.Refresher = cfg.Refresher
	if s.Refresher == nil {
		s.Refresher = NewStatusRefresher(s.Remote)
	}
	s.Workflow = transition.New(s.Remote, transition.WithSpecStore(s.Specs))
	s.Composer = composer.New(
		composer.WithEmitter(s.Emitter),
		composer.WithPolicy(policy),
		composer.WithMaxConcurrency(conf.Composer.MaxConcurrency),
		composer.WithRecorder(s.Recorder),
	)
	s.Orchestrator = orchestrator.New(orchestrator.Config{
		Remote:    s.Remote,
		Specs:     s.Specs,
		Workflow:  s.Workflow,
		Composer:  s.Composer,
		Refresher: s.Refresher,
		Policies:  conf.Retry.PolicyFor,
		Recorder:  s.Recorder,
	})

	// Step 4: Dispatcher
	s.Dispatcher = dispatch.New(dispatch.Config{
		Workflow:     s.Workflow,
		Orchestrator: s.Orchestrator,
		Policies:     conf.Retry.PolicyFor,
		Emitter:      s.Emitter,
		Recorder:     s.Recorder,
	})

	logging.Debug("Services", "Services initialized (remote=%s, workspaces=%s, continuation=%s)",
		conf.Remote.BaseURL, conf.Workspaces.Dir, policy)
	return s, nil
}

// Close releases the connections held by the services.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
