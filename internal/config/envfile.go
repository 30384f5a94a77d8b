package config

import (
	"os"
	"path/filepath"
	"strings"
)

// loadEnvFiles applies .env.local and .env to the process environment,
// checking the working directory first and the binary's directory
// second. Variables that are already set are left alone, so real
// environment always wins over file contents. Called only when
// REDIS_URL is unset.
func loadEnvFiles() {
	for _, dir := range envFileDirs() {
		for _, name := range []string{".env.local", ".env"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			applyEnv(data)
		}
	}
}

func envFileDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// applyEnv sets KEY=VALUE lines from env-file content, skipping blanks,
// comments, and keys that already have a value.
func applyEnv(data []byte) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
