// Package config loads sentinel settings and resolves user-supplied paths.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a path the way a shell would: a leading ~ becomes
// the user's home directory, then $VAR references are substituted. Paths
// from the config file and CLI flags go through here before use.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
