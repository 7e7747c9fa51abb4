/*
Copyright © 2025 The omoplink authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/medtext/omoplink/internal/iofs"
	"github.com/medtext/omoplink/internal/iologger"
	app "github.com/medtext/omoplink/pkg"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

var rootCmd = getRootCmd()

// getRootCmd returns the root command with all subcommands attached.
// Extracted as a function to facilitate testing.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "omoplink",
		Short:   "omoplink links clinical text mentions to OMOP concepts",
		Long: `omoplink links free-text clinical mentions to OMOP standard
vocabulary concepts and scores predicted links against gold annotations.

The tool works in phases:
  - build:   compile the OMOP vocabulary tables into a concept graph store
  - embed:   embed concept names into a nearest-neighbor index
  - resolve: link one mention to ranked concept candidates
  - eval:    run the evaluation harness over a document corpus

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (OMOPLINK_*)
  3. Config file (~/.config/omoplink/config.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (embed.endpoint → OMOPLINK_EMBED_ENDPOINT).

  Examples:
    OMOPLINK_EMBED_ENDPOINT         embedding service URL
    OMOPLINK_EMBED_MODEL            embedding model name
    OMOPLINK_SCORE_DECAY            partial-credit decay formula
    OMOPLINK_JOBS_NUMBER            number of parallel workers

  See 'go doc github.com/medtext/omoplink/pkg/config' for the complete list.`,
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "omoplink version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V
	rootCmd.Flags().BoolP("version", "V", false, "version for omoplink")

	rootCmd.AddCommand(getBuildCmd())
	rootCmd.AddCommand(getEmbedCmd())
	rootCmd.AddCommand(getResolveCmd())
	rootCmd.AddCommand(getEvalCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureSourcesFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info(
		"Configuration files are available at <em>%s</em>",
		config.ConfigDir(homeDir),
	)

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings and proper log file location
	if err = reconfigureLogging(cfg); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir))

	return nil
}

// reconfigureLogging reinitializes the logger with the loaded
// configuration, appending to the log file created at startup.
func reconfigureLogging(cfg *config.Config) error {
	logDir := config.LogDir(cfg.HomeDir)
	return iologger.Init(logDir, cfg.Log, true)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are
	// allowed. These match the fields included in config.ToOptions() -
	// i.e., persistent configuration that can be stored in config.yaml.
	v.SetEnvPrefix("OMOPLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Store configuration
	v.BindEnv("store.batch_size", "OMOPLINK_STORE_BATCH_SIZE")

	// Embedding configuration
	v.BindEnv("embed.endpoint", "OMOPLINK_EMBED_ENDPOINT")
	v.BindEnv("embed.model", "OMOPLINK_EMBED_MODEL")
	v.BindEnv("embed.dimensions", "OMOPLINK_EMBED_DIMENSIONS")
	v.BindEnv("embed.prefix", "OMOPLINK_EMBED_PREFIX")
	v.BindEnv("embed.batch_size", "OMOPLINK_EMBED_BATCH_SIZE")
	v.BindEnv("embed.workers", "OMOPLINK_EMBED_WORKERS")
	v.BindEnv("embed.max_attempts", "OMOPLINK_EMBED_MAX_ATTEMPTS")
	v.BindEnv("embed.retry_delay_ms", "OMOPLINK_EMBED_RETRY_DELAY_MS")

	// Resolver configuration
	v.BindEnv("resolve.top_k", "OMOPLINK_RESOLVE_TOP_K")
	v.BindEnv("resolve.min_similarity", "OMOPLINK_RESOLVE_MIN_SIMILARITY")
	v.BindEnv("resolve.exact_boost", "OMOPLINK_RESOLVE_EXACT_BOOST")
	v.BindEnv("resolve.overlap_boost", "OMOPLINK_RESOLVE_OVERLAP_BOOST")
	v.BindEnv("resolve.hint_penalty", "OMOPLINK_RESOLVE_HINT_PENALTY")

	// Scorer and harness configuration
	v.BindEnv("score.decay", "OMOPLINK_SCORE_DECAY")
	v.BindEnv("score.accept_threshold", "OMOPLINK_SCORE_ACCEPT_THRESHOLD")
	v.BindEnv("eval.min_overlap", "OMOPLINK_EVAL_MIN_OVERLAP")

	// Log configuration
	v.BindEnv("log.level", "OMOPLINK_LOG_LEVEL")
	v.BindEnv("log.format", "OMOPLINK_LOG_FORMAT")
	v.BindEnv("log.destination", "OMOPLINK_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "OMOPLINK_JOBS_NUMBER")

	v.AutomaticEnv()
}
