package config

import (
	"log/slog"
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

var (
	envVarPattern        = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	envVarDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-([^}]*)\}`)
)

// LoadEnvFiles loads .env.local then .env from the working directory.
// Variables already present in the environment win over file values.
func LoadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("failed to load env file", "file", name, "error", err)
			continue
		}
		slog.Debug("loaded env file", "file", name)
	}
}

// ExpandEnvVars substitutes ${VAR} and ${VAR:-default} references in s with
// values from the environment. An unset ${VAR} expands to the empty string.
func ExpandEnvVars(s string) string {
	s = envVarDefaultPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarDefaultPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(parts[1]); ok {
			return value
		}
		return parts[2]
	})

	s = envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})

	return s
}
