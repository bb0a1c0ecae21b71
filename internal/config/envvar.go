package config

import "os"

// Environment variable names recognized by the CLI.
const (
	EnvDataDir = "MICROBEADS_DIR" // Path to a .microbeads data directory, bypassing git discovery
	EnvRemote  = "MB_REMOTE"      // Override the sync remote
	EnvJSON    = "MB_JSON"        // Enable JSON output ("1" or "true")
)

// ApplyEnvOverrides applies MB_REMOTE on top of the loaded config.
// Overrides are in-memory only and never persisted.
func ApplyEnvOverrides(s Store) {
	if remote := os.Getenv(EnvRemote); remote != "" {
		s.SetInMemory(KeySyncRemote, remote)
	}
}
