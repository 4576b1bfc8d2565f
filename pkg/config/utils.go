package config

import (
	"os"
	"path/filepath"
)

// findUp returns the first dir/name found walking from dir to the
// filesystem root. An empty name means ".env".
func findUp(dir, name string) (string, bool) {
	if name == "" {
		name = ".env"
	}
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// maskValue keeps the first two and last four characters of a secret.
func maskValue(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 6:
		return "****"
	default:
		return v[:2] + "****" + v[len(v)-4:]
	}
}
