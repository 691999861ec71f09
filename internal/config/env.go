package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; the first file to set a variable wins and the
// process environment is never overridden.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env files from the working directory and from dir (the
// config file's directory) before ${VAR} expansion.
func loadEnvFiles(dir string) {
	seen := make(map[string]bool)
	for _, base := range []string{".", dir} {
		for _, name := range envFiles {
			p := filepath.Clean(filepath.Join(base, name))
			if seen[p] {
				continue
			}
			seen[p] = true
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				slog.Warn("Failed to load env file", "path", p, "error", err)
				continue
			}
			slog.Debug("Loaded environment variables", "path", p)
		}
	}
}
