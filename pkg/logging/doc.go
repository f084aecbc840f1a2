// Package logging provides the subsystem-tagged structured logger used across
// conductor.
//
// It is a thin layer over log/slog. Every entry carries a "subsystem"
// attribute, and entries produced while executing a composite workflow can
// additionally carry the run id through RunLogger.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Orchestrator", "Restarting workspace %s", key.Name)
//	logging.Error("Transition", err, "Failed to stop %s", key.ID())
//
//	log := logging.ForRun("Composer", run.ID)
//	log.Debug("Step %s skipped: out of scope", step.ID)
//
// Messages below the configured level are dropped before formatting. Before
// Init is called only warnings and errors are written, through slog's default
// logger.
package logging
