package config

import (
	"os"
	"path/filepath"
)

const dataDirName = "medtrail"

// DefaultDataDir picks where patient and event data lives when no data_dir
// is configured. XDG_DATA_HOME wins, then the conventional per-OS location.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return dataDirFor(home, os.Getenv("XDG_DATA_HOME"), isDir)
}

// dataDirFor resolves the data dir from explicit inputs; dirExists reports
// whether a candidate parent directory is present on this host.
func dataDirFor(home, xdg string, dirExists func(string) bool) string {
	if home == "" {
		return "./data"
	}
	if xdg != "" {
		return filepath.Join(xdg, dataDirName)
	}
	switch {
	case dirExists("/var/lib"):
		return filepath.Join("/var/lib", dataDirName)
	case dirExists(filepath.Join(home, "Library")):
		return filepath.Join(home, "Library", "Application Support", "Medtrail")
	case dirExists(filepath.Join(home, "AppData")):
		return filepath.Join(home, "AppData", "Local", "Medtrail")
	}
	return filepath.Join(home, "."+dataDirName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
