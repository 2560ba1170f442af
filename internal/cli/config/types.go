// Package config provides configuration management for the leapbasic CLI.
//
// Values are layered with koanf: built-in defaults, then leapbasic.yaml, then
// LEAPBASIC_* environment variables, then explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapbasic/internal/storage"
)

// Config holds all CLI configuration options.
type Config struct {
	LogLevel     string        `koanf:"log_level"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Modules      []string      `koanf:"modules"`
	Console      ConsoleConfig `koanf:"console"`
	Storage      StorageConfig `koanf:"storage"`
	Random       RandomConfig  `koanf:"random"`
	REPL         REPLConfig    `koanf:"repl"`
	Script       ScriptConfig  `koanf:"script"`

	// ProjectRoot is the directory relative drive paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, if any.
	File        string `koanf:"-"`
}

// ConsoleConfig overrides the detected terminal size. Zero means detect.
type ConsoleConfig struct {
	Columns int `koanf:"columns"`
	Lines   int `koanf:"lines"`
}

// StorageConfig lists the drives mounted for DIR, LOAD, SAVE and KILL.
type StorageConfig struct {
	DefaultDrive string                         `koanf:"default_drive"`
	Drives       map[string]storage.DriveConfig `koanf:"drives"`
}

// RandomConfig seeds RND. A zero seed means seed from the clock.
type RandomConfig struct {
	Seed int64 `koanf:"seed"`
}

// REPLConfig holds interactive session settings.
type REPLConfig struct {
	Prompt      string `koanf:"prompt"`
	HistoryFile string `koanf:"history_file"`
}

// ScriptConfig limits `leapbasic run`. A zero timeout means no limit.
type ScriptConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Default configuration values.
const (
	DefaultLogLevel     = "warn"
	DefaultOutput       = "text"
	DefaultDrive        = "local"
	DefaultPrompt       = "leapbasic> "
	DefaultHistoryFile  = ".leapbasic_history"
	DefaultScriptSuffix = ".star"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)
