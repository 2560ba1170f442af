package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapbasic/internal/storage"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}

	switch c.OutputFormat {
	case OutputText, OutputJSON, OutputYAML:
	default:
		errs = append(errs, fmt.Errorf("output %q must be one of %s, %s, %s", c.OutputFormat, OutputText, OutputJSON, OutputYAML))
	}

	known := stdlib.ModuleNames()
	for _, m := range c.Modules {
		if !slices.ContainsFunc(known, func(k string) bool { return strings.EqualFold(k, m) }) {
			errs = append(errs, fmt.Errorf("unknown module %q (known: %s)", m, strings.Join(known, ", ")))
		}
	}

	if c.Console.Columns < 0 || c.Console.Lines < 0 {
		errs = append(errs, errors.New("console.columns and console.lines cannot be negative"))
	}
	if c.Script.Timeout < 0 {
		errs = append(errs, errors.New("script.timeout cannot be negative"))
	}

	errs = append(errs, c.validateDrives()...)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) validateDrives() []error {
	var errs []error
	if len(c.Storage.Drives) == 0 {
		return []error{errors.New("storage.drives must define at least one drive")}
	}
	found := false
	for name, d := range c.Storage.Drives {
		if strings.EqualFold(name, c.Storage.DefaultDrive) {
			found = true
		}
		switch d.Type {
		case storage.TypeMemory, "", storage.TypeSQLite:
		case storage.TypeLocal, storage.TypePostgres:
			if d.Path == "" {
				errs = append(errs, fmt.Errorf("drive %s: %s drives need a path", name, d.Type))
			}
		default:
			errs = append(errs, fmt.Errorf("drive %s: unknown type %q", name, d.Type))
		}
		if d.Retries < 0 {
			errs = append(errs, fmt.Errorf("drive %s: retries cannot be negative", name))
		}
	}
	if !found {
		errs = append(errs, fmt.Errorf("storage.default_drive %q is not a configured drive", c.Storage.DefaultDrive))
	}
	return errs
}
