// Package launchconfig resolves the small amount of embedder configuration
// spec §6.4 names: native debug-shim binary discovery. It is bootstrap
// glue for an embedder process, not a specified component, kept as small
// as the teacher's own main.go env loading.
package launchconfig

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config is the resolved embedder configuration.
type Config struct {
	// ShimPath is the native debug-shim binary path, if resolved.
	ShimPath string
	// NugetPackages is the NUGET_PACKAGES root searched as a fallback when
	// CLRDEBUG_SHIM_PATH is unset.
	NugetPackages string
}

// Load reads a .env file if present (any load error, including a missing
// file, is ignored and nothing is logged) and resolves Config from the
// environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		NugetPackages: os.Getenv("NUGET_PACKAGES"),
	}
	if shim := os.Getenv("CLRDEBUG_SHIM_PATH"); shim != "" {
		cfg.ShimPath = shim
		return cfg
	}
	if cfg.NugetPackages != "" {
		cfg.ShimPath = filepath.Join(cfg.NugetPackages, "clrdebug.shim", "tools", "clrdebug-shim")
	}
	return cfg
}
