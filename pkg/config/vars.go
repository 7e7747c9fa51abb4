package config

import (
	"path/filepath"
)

var (
	// IndexVersion marks the on-disk layout of the embedding index
	// artifact. Bump it when the encoded structure changes; older
	// artifacts are then rejected instead of misread.
	IndexVersion = 1
	// AppName is used in generating file system paths.
	AppName = "omoplink"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/omoplink by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Returns ~/.cache/omoplink by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/omoplink/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/omoplink/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// SourcesFilePath returns the full path to the sources.yaml file.
// Returns ~/.config/omoplink/sources.yaml by default.
func SourcesFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "sources.yaml")
}

// StorePath returns the cache path of the concept graph store artifact
// for a source fingerprint.
func StorePath(homeDir, fingerprint string) string {
	return filepath.Join(CacheDir(homeDir), "graph-"+short(fingerprint)+".db")
}

// IndexPath returns the cache path of the embedding index artifact for
// an index fingerprint.
func IndexPath(homeDir, fingerprint string) string {
	return filepath.Join(CacheDir(homeDir), "index-"+short(fingerprint)+".idx")
}

// CheckpointDir returns the directory of the embedding build
// checkpoint store.
func CheckpointDir(homeDir string) string {
	return filepath.Join(CacheDir(homeDir), "checkpoints")
}

// short abbreviates a fingerprint for file names; the full fingerprint
// lives inside the artifact and is always verified after opening.
func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
