package cmd

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/config"
	"github.com/felixgeelhaar/wavekeeper/internal/journal"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/metrics"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
	"github.com/felixgeelhaar/wavekeeper/internal/version"
)

// CommandContext holds the global flags of one invocation.
type CommandContext struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
	LogFormat  string
	NoColor    bool
}

// NewCommandContext reads the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()
	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}
	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		ConfigFile: configFile,
		EnvFile:    envFile,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		NoColor:    noColor,
	}, nil
}

// LoadConfig loads the configuration and applies the logging flags.
func (c *CommandContext) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: c.ConfigFile, DotEnv: c.EnvFile})
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	return cfg, nil
}

// Formatter returns an output formatter writing to the command's stdout.
func (c *CommandContext) Formatter(cmd *cobra.Command, format string) (ux.Formatter, error) {
	return ux.NewFormatter(strings.ToLower(format), &ux.FormatterOptions{
		Writer:  cmd.OutOrStdout(),
		NoColor: c.NoColor,
	})
}

// app is the configured runtime state of a command.
type app struct {
	*CommandContext

	cfg      *config.Config
	logger   *log.Logger
	closeLog io.Closer
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(cmd *cobra.Command) (*app, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := cfg.Logger("wavekeeper", version.GetInfo().Short())
	if err != nil {
		return nil, err
	}
	logger = logger.With("command", cmd.CommandPath(), "config_digest", cfg.ShortDigest())
	if cfg.File != "" {
		logger.Debug("configuration loaded", "file", cfg.File)
	}

	registry, m := metrics.NewRegistry()
	return &app{
		CommandContext: cc,
		cfg:            cfg,
		logger:         logger,
		closeLog:       closer,
		registry:       registry,
		metrics:        m,
	}, nil
}

// context scopes the logger to ctx.
func (a *app) context(ctx context.Context) context.Context {
	return log.NewContext(ctx, a.logger)
}

// journal returns the run journal, or nil when it is disabled.
func (a *app) journal() *journal.Journal {
	if !a.cfg.Journal.Enabled {
		return nil
	}
	return journal.New(a.cfg.Journal.Dir)
}

// flush writes the metrics textfile and prunes the journal.
func (a *app) flush() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(a.registry, path); err != nil {
			a.logger.WithError(err).Warn("could not write metrics textfile", "path", path)
		}
	}
	if j := a.journal(); j != nil && a.cfg.Journal.Retention > 0 {
		removed, err := j.Prune(time.Now().Add(-a.cfg.Journal.Retention))
		if err != nil {
			a.logger.WithError(err).Warn("could not prune journal")
		} else if removed > 0 {
			a.logger.Info("journal pruned", "removed", removed)
		}
	}
}

func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog.Close()
	}
}

// Render writes data in format. Text output uses view instead of data.
func (c *CommandContext) Render(cmd *cobra.Command, format string, data any, view ux.TextRenderer) error {
	f, err := c.Formatter(cmd, format)
	if err != nil {
		return err
	}
	if strings.EqualFold(format, "text") || format == "" {
		return f.Format(view)
	}
	return f.Format(data)
}

// validateFormat rejects an unknown --format before any work is done.
func validateFormat(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if _, err := ux.NewFormatter(strings.ToLower(format), &ux.FormatterOptions{Writer: io.Discard}); err != nil {
		return &usageError{err: err, usage: cmd.UsageString()}
	}
	return nil
}
