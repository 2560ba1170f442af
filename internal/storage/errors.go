package storage

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
)

func notFound(name string) error {
	return fmt.Errorf("%s: %w", name, capability.ErrNotFound)
}

// validName rejects names that could escape a drive or that no backend can store.
func validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("file name cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid file name %q", name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("invalid file name %q: must not contain path separators or drive prefixes", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
