package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/config"
	"conductor/internal/dispatch"
	"conductor/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs conductor. It owns the loaded configuration and the wired services.
//
// Example usage:
//
//	cfg := app.NewConfig(false, config.GetDefaultConfigPathOrPanic())
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	outcome, err := application.Dispatch(ctx, intent)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with
// the provided configuration:
//
//  1. Configures logging from the log level, format and debug flags
//  2. Loads config.yaml from cfg.ConfigPath unless already loaded
//  3. Initializes all services
func NewApplication(cfg *Config) (*Application, error) {
	if err := initLogging(cfg); err != nil {
		return nil, err
	}

	if cfg.ConductorConfig == nil {
		conductorCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		cfg.ConductorConfig = &conductorCfg
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config) error {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	if cfg.LogLevel != "" {
		parsed, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		level = parsed
	}

	format := logging.FormatText
	switch logging.Format(cfg.LogFormat) {
	case "", logging.FormatText:
	case logging.FormatJSON:
		format = logging.FormatJSON
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(level, format, logOutput)
	return nil
}

// Services returns the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.config.ConductorConfig
}

// Dispatch runs an intent to its terminal outcome.
func (a *Application) Dispatch(ctx context.Context, intent api.Intent) (*dispatch.Outcome, error) {
	return a.services.Dispatcher.Dispatch(ctx, intent)
}

// RestartWorkspace restarts the stored workspace name. Settings are
// applied to the matching layers before their services start again.
func (a *Application) RestartWorkspace(ctx context.Context, name string, scope api.Scope, settings map[api.ServiceKind]api.Spec) (*composer.Report, error) {
	ws, err := a.services.Specs.Get(name)
	if err != nil {
		return nil, err
	}
	req := ws.RestartRequest(scope)
	req.ZookeeperSettings = settings[api.KindZookeeper]
	req.BrokerSettings = settings[api.KindBroker]
	req.WorkerSettings = settings[api.KindWorker]

	outcome, err := a.Dispatch(ctx, api.Intent{
		Kind:      api.IntentRestart,
		Workspace: req.Workspace,
		Scope:     scope,
		Restart:   &req,
	})
	if outcome == nil {
		return nil, err
	}
	return outcome.Report, err
}

// Pause pauses the active restart of a workspace. It reports whether a run
// was active.
func (a *Application) Pause(workspace api.ServiceKey) bool {
	return a.services.Orchestrator.Pause(workspace)
}

// Run serves until ctx is cancelled or a signal arrives: it watches the
// workspace directory and exposes metrics when configured.
func (a *Application) Run(ctx context.Context) error {
	return runServeMode(ctx, a.config.ConductorConfig, a.services)
}

// Close releases the resources of the application.
func (a *Application) Close() error {
	return a.services.Close()
}
