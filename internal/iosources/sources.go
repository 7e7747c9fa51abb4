// Package iosources loads the sources.yaml configuration that points
// omoplink at the OMOP vocabulary tables. This is an impure I/O
// package; the configuration schema and its validation live in
// pkg/sources.
package iosources

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/sources"
	"gopkg.in/yaml.v3"
)

type iosources struct {
	cfg *config.Config
}

// New creates a sources.yaml loader bound to the app configuration.
func New(cfg *config.Config) sources.Sources {
	res := iosources{cfg: cfg}
	return &res
}

// Load reads sources.yaml from the config directory, validates it,
// applies the runtime --sources-dir override, expands "~" in the
// vocabulary directory, and verifies the directory exists. Per-file
// checks are left to the store build, which reports missing tables as
// schema errors.
func (s *iosources) Load() (*sources.Config, error) {
	sourcesPath := config.SourcesFilePath(s.cfg.HomeDir)
	res, err := loadConfig(sourcesPath, s.cfg.Store.SourcesDir)
	if err != nil {
		return nil, err
	}

	res.Dir = expandHome(res.Dir, s.cfg.HomeDir)

	stat, err := os.Stat(res.Dir)
	if err != nil || !stat.IsDir() {
		return nil, SourcesDirError(res.Dir, err)
	}

	return res, nil
}

func loadConfig(path, dirOverride string) (*sources.Config, error) {
	var res sources.Config

	// A --sources-dir override makes sources.yaml optional.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, &res); err != nil {
			return nil, SourcesConfigError(path, err)
		}
	case dirOverride == "":
		return nil, SourcesConfigError(path, err)
	}

	if dirOverride != "" {
		res.Dir = dirOverride
	}

	if err = res.Validate(); err != nil {
		return nil, SourcesConfigError(path, err)
	}
	return &res, nil
}

func expandHome(dir, homeDir string) string {
	if strings.HasPrefix(dir, "~/") {
		return filepath.Join(homeDir, dir[2:])
	}
	return dir
}
