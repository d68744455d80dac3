// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/internal/config"
	"github.com/reouo/bilifeed/internal/logger"
)

// CommandDeps holds common dependencies for all commands.
// Use this instead of context.Value for type-safe dependency injection.
type CommandDeps struct {
	Logger logger.Interface
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps creates CommandDeps by loading config and creating the
// logger. The debug flag forces the debug log level regardless of config.
func NewCommandDeps(cfgFile string, debug bool) (CommandDeps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	level := strings.ToLower(cfg.Logger.Level)
	if debug {
		level = "debug"
	}

	log, err := logger.New(&logger.Config{
		Level:       logger.Level(level),
		Development: cfg.Logger.Development,
		Encoding:    cfg.Logger.Encoding,
	})
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{
		Logger: log,
		Config: cfg,
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}

// DepsFromCommand builds CommandDeps from the root command's persistent
// flags.
func DepsFromCommand(cmd *cobra.Command) (CommandDeps, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return NewCommandDeps(cfgFile, debug)
}
