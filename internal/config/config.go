// Package config loads wavekeeper's configuration with viper: built-in
// defaults, then an optional YAML file, then the environment. A .env file
// next to the working directory is read first and only fills variables
// that are not already set.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/bridge"
	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/gameapi"
	"github.com/felixgeelhaar/wavekeeper/internal/hooks"
	"github.com/felixgeelhaar/wavekeeper/internal/httpclient"
	"github.com/felixgeelhaar/wavekeeper/internal/journal"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/notify"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
	"github.com/felixgeelhaar/wavekeeper/internal/supervisor"
)

// EnvPrefix prefixes every configuration key in the environment, e.g.
// WAVEKEEPER_POLICY_TARGET for policy.target.
const EnvPrefix = "WAVEKEEPER"

// DefaultFile is looked up in the working directory and ~/.config/wavekeeper
// when no --config flag is given.
const DefaultFile = "wavekeeper.yaml"

// Config is the whole application configuration.
type Config struct {
	Log     LogConfig          `mapstructure:"log" yaml:"log" json:"log"`
	Sheets  sheets.Config      `mapstructure:"sheets" yaml:"sheets" json:"sheets"`
	Mailgun notify.Config      `mapstructure:"mailgun" yaml:"mailgun" json:"mailgun"`
	GameAPI gameapi.Config     `mapstructure:"game_api" yaml:"game_api" json:"game_api"`
	Runtime bridge.Config      `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
	HTTP    httpclient.Options `mapstructure:"http" yaml:"http" json:"http"`

	Policy  forecast.Policy `mapstructure:"policy" yaml:"policy" json:"policy"`
	Reset   ResetConfig     `mapstructure:"reset" yaml:"reset" json:"reset"`
	Stamina StaminaConfig   `mapstructure:"stamina" yaml:"stamina" json:"stamina"`

	Tasks TasksConfig            `mapstructure:"tasks" yaml:"tasks" json:"tasks"`
	Retry supervisor.RetryPolicy `mapstructure:"retry" yaml:"retry" json:"retry"`
	Farm  FarmConfig             `mapstructure:"farm" yaml:"farm" json:"farm"`

	Hooks   []hooks.HookConfig `mapstructure:"hooks" yaml:"hooks" json:"hooks,omitempty"`
	Journal JournalConfig      `mapstructure:"journal" yaml:"journal" json:"journal"`
	Metrics MetricsConfig      `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// PolicyDefaults names the policy keys that were not configured.
	PolicyDefaults []string `mapstructure:"-" yaml:"-" json:"-"`
	// File is the configuration file that was read, if any.
	File string `mapstructure:"-" yaml:"-" json:"file,omitempty"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level     string           `mapstructure:"level" yaml:"level" json:"level"`
	Format    string           `mapstructure:"format" yaml:"format" json:"format"`
	File      string           `mapstructure:"file" yaml:"file" json:"file,omitempty"`
	AddSource bool             `mapstructure:"add_source" yaml:"add_source" json:"add_source"`
	Filters   []log.FilterRule `mapstructure:"filters" yaml:"filters" json:"filters,omitempty"`
}

// ResetConfig is the daily reset time of day in a fixed UTC offset.
type ResetConfig struct {
	Time        string `mapstructure:"time" yaml:"time" json:"time"`
	UTCOffsetHr int    `mapstructure:"utc_offset_hours" yaml:"utc_offset_hours" json:"utc_offset_hours"`
}

// Location returns the reset's fixed zone.
func (r ResetConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+03d", r.UTCOffsetHr), r.UTCOffsetHr*60*60)
}

// Daily returns the reset as a forecast.DailyReset.
func (r ResetConfig) Daily() (forecast.DailyReset, error) {
	h, m, err := forecast.ParseClock(r.Time)
	if err != nil {
		return forecast.DailyReset{}, err
	}
	return forecast.DailyReset{Hour: h, Minute: m, Location: r.Location()}, nil
}

// StaminaConfig tunes how stamina figures are derived.
type StaminaConfig struct {
	// BackfillUnit is the unit used stamina is rounded to when derived
	// from the start and end totals.
	BackfillUnit int `mapstructure:"backfill_unit" yaml:"backfill_unit" json:"backfill_unit"`
}

// TaskConfig names a runtime task and bounds its run.
type TaskConfig struct {
	Name    string        `mapstructure:"name" yaml:"name" json:"name"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// TasksConfig holds the runtime tasks wavekeeper drives.
type TasksConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	DeadlinePollInterval time.Duration `mapstructure:"deadline_poll_interval" yaml:"deadline_poll_interval" json:"deadline_poll_interval"`

	Login TaskConfig `mapstructure:"login" yaml:"login" json:"login"`
	Daily TaskConfig `mapstructure:"daily" yaml:"daily" json:"daily"`
	Tacet TaskConfig `mapstructure:"tacet" yaml:"tacet" json:"tacet"`
	Farm  TaskConfig `mapstructure:"farm" yaml:"farm" json:"farm"`
	Merge TaskConfig `mapstructure:"merge" yaml:"merge" json:"merge"`
}

// FarmConfig tunes the echo farm loop.
type FarmConfig struct {
	// StopAt is the time of day, in the reset zone, the loop ends.
	StopAt string `mapstructure:"stop_at" yaml:"stop_at" json:"stop_at"`
	// EchoCap is the bag size the repeat count aims to fill.
	EchoCap int `mapstructure:"echo_cap" yaml:"echo_cap" json:"echo_cap"`
	// RepeatFallback is used when the echo count cannot be read.
	RepeatFallback int           `mapstructure:"repeat_fallback" yaml:"repeat_fallback" json:"repeat_fallback"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" yaml:"settle_delay" json:"settle_delay"`
	ShutdownAfter  bool          `mapstructure:"shutdown_after" yaml:"shutdown_after" json:"shutdown_after"`
}

// JournalConfig locates the local run journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir" json:"dir"`
	// Retention prunes older records after each run; zero keeps everything.
	Retention time.Duration `mapstructure:"retention" yaml:"retention" json:"retention"`
}

// MetricsConfig configures the node-exporter textfile.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile,omitempty"`
}

// policyKeys are the policy settings whose defaults are announced.
var policyKeys = []string{"policy.backup_weight", "policy.target", "policy.backup_basis"}

// legacyEnv maps keys to the variable names of the original deployment.
var legacyEnv = map[string][]string{
	"sheets.spreadsheet_id":     {"GOOGLE_SHEET_ID"},
	"sheets.credentials":        {"GOOGLE_SERVICE_ACCOUNT_JSON"},
	"sheets.credentials_base64": {"GOOGLE_SERVICE_ACCOUNT_JSON_BASE64"},
	"sheets.credentials_file":   {"GOOGLE_APPLICATION_CREDENTIALS"},
	"sheets.config_sheet":       {"SHEET_NAME_CONFIG"},
	"sheets.daily_sheet":        {"SHEET_NAME_DAILY"},
	"sheets.stamina_sheet":      {"SHEET_NAME_STAMINA"},
	"sheets.farm_sheet":         {"SHEET_NAME_FASTFARM"},
	"mailgun.api_key":           {"MAILGUN_API_KEY"},
	"mailgun.domain":            {"MAILGUN_DOMAIN"},
	"mailgun.recipient":         {"MAILGUN_RECIPIENT"},
	"mailgun.template_daily":    {"MAILGUN_TEMPLATE_DAILY"},
	"mailgun.template_stamina":  {"MAILGUN_TEMPLATE_STAMINA"},
	"game_api.role_id":          {"WAVES_ROLE_ID"},
	"game_api.token":            {"WAVES_TOKEN"},
	"game_api.did":              {"WAVES_DID"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.add_source", false)

	sc := sheets.DefaultConfig()
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials", "")
	v.SetDefault("sheets.credentials_base64", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.config_sheet", sc.ConfigSheet)
	v.SetDefault("sheets.daily_sheet", sc.DailySheet)
	v.SetDefault("sheets.stamina_sheet", sc.StaminaSheet)
	v.SetDefault("sheets.farm_sheet", sc.FarmSheet)
	v.SetDefault("sheets.layout", string(sc.Layout))
	v.SetDefault("sheets.endpoint", "")

	v.SetDefault("mailgun.api_key", "")
	v.SetDefault("mailgun.domain", "")
	v.SetDefault("mailgun.recipient", "")
	v.SetDefault("mailgun.sender", "")
	v.SetDefault("mailgun.base_url", notify.DefaultBaseURL)
	v.SetDefault("mailgun.template_daily", "")
	v.SetDefault("mailgun.template_stamina", "")

	v.SetDefault("game_api.role_id", "")
	v.SetDefault("game_api.token", "")
	v.SetDefault("game_api.did", "")
	v.SetDefault("game_api.server_id", "")
	v.SetDefault("game_api.platform", "android")
	v.SetDefault("game_api.base_url", gameapi.DefaultBaseURL)

	v.SetDefault("runtime.url", bridge.DefaultURL)
	v.SetDefault("runtime.token", "")

	ho := httpclient.DefaultOptions()
	v.SetDefault("http.timeout", ho.Timeout)
	v.SetDefault("http.retry_max", ho.RetryMax)
	v.SetDefault("http.retry_wait_min", ho.RetryWaitMin)
	v.SetDefault("http.retry_wait_max", ho.RetryWaitMax)

	p := forecast.DefaultPolicy()
	v.SetDefault("policy.current_cap", p.CurrentCap)
	v.SetDefault("policy.backup_cap", p.BackupCap)
	v.SetDefault("policy.current_regen_minutes", p.CurrentRegenMinutes)
	v.SetDefault("policy.backup_regen_minutes", p.BackupRegenMinutes)
	v.SetDefault("policy.spend_unit", p.SpendUnit)
	v.SetDefault("policy.backup_weight", p.BackupWeight)
	v.SetDefault("policy.target", p.Target)
	v.SetDefault("policy.backup_basis", string(p.BackupBasis))
	v.SetDefault("policy.rounding", string(p.Rounding))

	v.SetDefault("reset.time", "04:30")
	v.SetDefault("reset.utc_offset_hours", 8)
	v.SetDefault("stamina.backfill_unit", p.SpendUnit)

	v.SetDefault("tasks.poll_interval", supervisor.DefaultPollInterval)
	v.SetDefault("tasks.deadline_poll_interval", supervisor.DefaultDeadlinePollInterval)
	v.SetDefault("tasks.login.name", "Login Task")
	v.SetDefault("tasks.login.timeout", 600*time.Second)
	v.SetDefault("tasks.daily.name", "Daily Task")
	v.SetDefault("tasks.daily.timeout", 1200*time.Second)
	v.SetDefault("tasks.tacet.name", "Tacet Task")
	v.SetDefault("tasks.tacet.timeout", 600*time.Second)
	v.SetDefault("tasks.farm.name", "Fast Farm Echo Task")
	v.SetDefault("tasks.farm.timeout", time.Duration(0))
	v.SetDefault("tasks.merge.name", "Five To One Task")
	v.SetDefault("tasks.merge.timeout", 1800*time.Second)

	r := supervisor.DefaultRetryPolicy()
	v.SetDefault("retry.attempts", r.Attempts)
	v.SetDefault("retry.delay", r.Delay)

	v.SetDefault("farm.stop_at", "01:00")
	v.SetDefault("farm.echo_cap", 3000)
	v.SetDefault("farm.repeat_fallback", 100)
	v.SetDefault("farm.settle_delay", 300*time.Second)
	v.SetDefault("farm.shutdown_after", true)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dir", journal.DefaultDir)
	v.SetDefault("journal.retention", time.Duration(0))

	v.SetDefault("metrics.textfile", "")
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	cfg.PolicyDefaults = append([]string(nil), policyKeys...)
	return &cfg
}

// Options controls Load.
type Options struct {
	// File is an explicit configuration file; it must exist.
	File string
	// DotEnv is the .env file to read. Empty means ".env".
	DotEnv string
	// SearchPaths replaces the default lookup directories for DefaultFile.
	SearchPaths []string
}

// Load reads the configuration and validates it.
func Load(opts Options) (*Config, error) {
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := LoadDotEnv(dotenv); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, kerrors.NewFileNotFoundError(opts.File)
		}
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, filepath.Ext(DefaultFile)))
		v.SetConfigType("yaml")
		paths := opts.SearchPaths
		if paths == nil {
			paths = []string{"."}
			if home, err := os.UserHomeDir(); err == nil {
				paths = append(paths, filepath.Join(home, ".config", "wavekeeper"))
			}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "failed to bind "+key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "failed to read configuration file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "failed to decode configuration", err)
	}
	cfg.File = v.ConfigFileUsed()
	for _, key := range policyKeys {
		if !v.InConfig(key) && !envSet(key) {
			cfg.PolicyDefaults = append(cfg.PolicyDefaults, key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envSet reports whether key is given in the environment. IsSet cannot
// tell a configured key from a default.
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	return ok
}

// LoadDotEnv copies the variables of a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "failed to read "+path, err)
	}
	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeConfigInvalid, "failed to set "+name, err)
		}
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return kerrors.NewConfigInvalidError(fmt.Sprintf(format, args...))
	}

	if err := c.Policy.Validate(); err != nil {
		return invalid("policy: %v", err)
	}
	if _, err := c.Reset.Daily(); err != nil {
		return invalid("reset.time: %v", err)
	}
	if _, _, err := forecast.ParseClock(c.Farm.StopAt); err != nil {
		return invalid("farm.stop_at: %v", err)
	}
	if c.Reset.UTCOffsetHr < -12 || c.Reset.UTCOffsetHr > 14 {
		return invalid("reset.utc_offset_hours %d outside [-12, 14]", c.Reset.UTCOffsetHr)
	}
	if c.Stamina.BackfillUnit <= 0 {
		return invalid("stamina.backfill_unit must be positive, got %d", c.Stamina.BackfillUnit)
	}
	if c.Tasks.PollInterval <= 0 || c.Tasks.DeadlinePollInterval <= 0 {
		return invalid("task poll intervals must be positive")
	}
	for name, t := range c.Tasks.byName() {
		if t.Name == "" {
			return invalid("tasks.%s.name is empty", name)
		}
		if t.Timeout < 0 {
			return invalid("tasks.%s.timeout must not be negative", name)
		}
		if name != "farm" && t.Timeout == 0 {
			return invalid("tasks.%s.timeout must be positive", name)
		}
	}
	if c.Retry.Attempts < 1 {
		return invalid("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return invalid("retry.delay must not be negative")
	}
	if c.Farm.EchoCap <= 0 || c.Farm.RepeatFallback <= 0 {
		return invalid("farm.echo_cap and farm.repeat_fallback must be positive")
	}
	if c.Farm.SettleDelay < 0 {
		return invalid("farm.settle_delay must not be negative")
	}
	switch c.Sheets.Layout {
	case sheets.LayoutCells, sheets.LayoutLabels, "":
	default:
		return invalid("sheets.layout %q (want cells or labels)", c.Sheets.Layout)
	}
	if _, ok := log.LookupLevel(c.Log.Level); !ok && c.Log.Level != "" {
		return invalid("log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	if _, ok := log.LookupFormat(c.Log.Format); !ok && c.Log.Format != "" {
		return invalid("log.format %q (want json or text)", c.Log.Format)
	}
	if err := log.ValidateFilters(c.Log.Filters); err != nil {
		return invalid("log.filters: %v", err)
	}
	for _, h := range c.Hooks {
		if h.Name == "" {
			return invalid("hooks: every hook needs a name")
		}
		if h.FailureMode != "" && !hooks.IsValidFailureMode(h.FailureMode) {
			return invalid("hooks.%s.failure_mode %q (want ignore or warn)", h.Name, h.FailureMode)
		}
	}
	return nil
}

func (t TasksConfig) byName() map[string]TaskConfig {
	return map[string]TaskConfig{
		"login": t.Login,
		"daily": t.Daily,
		"tacet": t.Tacet,
		"farm":  t.Farm,
		"merge": t.Merge,
	}
}

// HookConfigs returns the configured hooks, or the defaults for the
// configured adapters when none are.
func (c *Config) HookConfigs() []hooks.HookConfig {
	if len(c.Hooks) > 0 {
		return c.Hooks
	}
	return hooks.DefaultConfigs(c.Sheets.Enabled(), c.Mailgun.Enabled())
}

// Logger builds the configured logger. The returned closer closes the log
// file, if one was opened.
func (c *Config) Logger(service, version string) (*log.Logger, io.Closer, error) {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(c.Log.Level)
	lc.Format = log.ParseFormat(c.Log.Format)
	lc.AddSource = c.Log.AddSource
	lc.ServiceName = service
	lc.ServiceVersion = version
	lc.Filters = c.Log.Filters

	closer := io.Closer(nopCloser{})
	if c.Log.File != "" {
		if dir := filepath.Dir(c.Log.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to create log directory", err)
			}
		}
		f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to open log file", err)
		}
		lc.Output = lc.Output.Tee(f)
		closer = f
	}
	return log.New(lc), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WarnPolicyDefaults logs the policy values that were not configured.
func (c *Config) WarnPolicyDefaults(logger *log.Logger) {
	if len(c.PolicyDefaults) == 0 {
		return
	}
	logger.Warn("burn policy not configured, using defaults",
		"keys", c.PolicyDefaults,
		"backup_weight", c.Policy.BackupWeight,
		"target", c.Policy.Target,
		"backup_basis", string(c.Policy.BackupBasis))
}

const redacted = "***"

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Sheets.Credentials)
	mask(&out.Sheets.CredentialsBase64)
	mask(&out.Mailgun.APIKey)
	mask(&out.GameAPI.Token)
	mask(&out.GameAPI.DID)
	mask(&out.Runtime.Token)

	out.Hooks = make([]hooks.HookConfig, len(c.Hooks))
	for i, h := range c.Hooks {
		if headers, ok := h.Config["headers"]; ok && headers != nil {
			cfg := make(map[string]any, len(h.Config))
			for k, v := range h.Config {
				cfg[k] = v
			}
			cfg["headers"] = redacted
			h.Config = cfg
		}
		out.Hooks[i] = h
	}
	return &out
}
