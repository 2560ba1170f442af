package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapbasic/internal/storage"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

// EnvPrefix prefixes every environment variable read by Load. A double underscore
// separates nesting levels: LEAPBASIC_STORAGE__DEFAULT_DRIVE sets storage.default_drive.
const EnvPrefix = "LEAPBASIC_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configNames = []string{"leapbasic.yaml", "leapbasic.yml"}

// flagKeys maps flag names whose config key is not the snake_case of the flag.
var flagKeys = map[string]string{
	"drive":   "storage.default_drive",
	"seed":    "random.seed",
	"prompt":  "repl.prompt",
	"history": "repl.history_file",
	"columns": "console.columns",
	"lines":   "console.lines",
}

// configExistsIn returns the path of the first config file found in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile returns explicit if set, otherwise searches upward from startDir.
func findConfigFile(explicit, startDir string) string {
	if explicit != "" {
		return explicit
	}
	// Walk up until a config file is found or the filesystem root is reached
	dir := startDir
	for range maxUpwardSearchLevels {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		// Reached root
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// defaults returns the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"log_level":                  DefaultLogLevel,
		"verbose":                    false,
		"output":                     DefaultOutput,
		"repl.prompt":                DefaultPrompt,
		"storage.default_drive":      DefaultDrive,
		"storage.drives.local.type":  storage.TypeLocal,
		"storage.drives.local.path":  ".",
		"storage.drives.memory.type": storage.TypeMemory,
	}
}

// Load loads configuration from defaults, the config file, environment variables and
// flags, in increasing order of precedence. Only flags that were explicitly set count.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// Determine the working directory for config file discovery
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile, cwd)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: LEAPBASIC_REPL__PROMPT -> repl.prompt
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Skip flags left at their defaults so they don't override lower layers
			if !f.Changed {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Decode into the struct
	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Relative paths are anchored at the directory holding the config file
	cfg.File = used
	cfg.ProjectRoot = cwd
	if used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			cfg.ProjectRoot = filepath.Dir(abs)
		}
	}
	resolvePaths(&cfg)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns LEAPBASIC_STORAGE__DEFAULT_DRIVE into storage.default_drive.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// unmarshal decodes k into cfg. Environment values arrive as strings, so durations
// ("1m30s") and comma-separated lists (LEAPBASIC_MODULES=strings,console) are converted.
func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	})
}

// resolvePaths expands ${VAR} references and anchors relative paths at the project root.
// Postgres paths are connection strings and are only expanded.
func resolvePaths(cfg *Config) {
	for name, drive := range cfg.Storage.Drives {
		switch {
		case drive.Type == storage.TypePostgres:
			drive.Path = expandEnvVars(drive.Path)
		case drive.Path != "" && drive.Path != ":memory:":
			drive.Path = resolvePathRelativeTo(expandEnvVars(drive.Path), cfg.ProjectRoot)
		}
		cfg.Storage.Drives[name] = drive
	}

	// History file: "-" disables it, empty means the default in the home directory
	switch history := expandEnvVars(cfg.REPL.HistoryFile); {
	case history == "-":
		cfg.REPL.HistoryFile = ""
	case history != "":
		cfg.REPL.HistoryFile = resolvePathRelativeTo(history, cfg.ProjectRoot)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			cfg.REPL.HistoryFile = filepath.Join(home, DefaultHistoryFile)
		}
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns, leaving unknown variables untouched.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Strip ${ and }
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() any {
	return configKey{}
}

// GetConfig retrieves the config from the command context, or the defaults when none
// was loaded.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// Default returns the configuration used when no file, environment or flags apply.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg := &Config{
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		REPL:         REPLConfig{Prompt: DefaultPrompt, HistoryFile: "-"},
		Storage: StorageConfig{
			DefaultDrive: DefaultDrive,
			Drives: map[string]storage.DriveConfig{
				"local":  {Type: storage.TypeLocal, Path: "."},
				"memory": {Type: storage.TypeMemory},
			},
		},
		ProjectRoot: cwd,
	}
	resolvePaths(cfg)
	return cfg
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger: text records on w at the configured level, or debug
// when verbose is set.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)
	// --verbose wins over log_level
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel converts a log_level value. Unknown values mean warn.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}
