// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the medonboard CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/medonboard/internal/casestore"
	"github.com/pdiddy/medonboard/internal/inference"
	"github.com/pdiddy/medonboard/internal/reference"
	"github.com/pdiddy/medonboard/internal/secrets"
	"github.com/pdiddy/medonboard/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is the merged configuration, loaded before any command runs.
	appConfig = types.DefaultConfig()

	// logger is configured from appConfig.Log.
	logger = logrus.New()

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string
)

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

var rootCmd = &cobra.Command{
	Use:   "medonboard",
	Short: "Medical case note reference and annotation tool",
	Long: `medonboard serves curated disease and medicine knowledge bases together
with a growing dataset of classified case studies.

Experts submit free-text case notes; each note is classified, tagged with
disease, symptom and medicine entities, reviewed, and appended to the case
table as one primary record plus one record per entity. Trainees browse.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		configureLogger(appConfig.Log)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.WithField("keys", keys).Debug("Loaded secrets")
		}
		appConfig.Inference.APIKey = secretDefault(secrets.InferenceAPIKey, appConfig.Inference.APIKey)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./medonboard.yaml or ~/.config/medonboard/medonboard.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("medonboard")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "medonboard"))
		}
	}

	viper.SetEnvPrefix("MEDONBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(types.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every scalar key so environment variables such as
// MEDONBOARD_STORE_BACKEND are picked up by Unmarshal.
func setDefaults(d types.AppConfig) {
	viper.SetDefault("store.backend", string(d.Store.Backend))
	viper.SetDefault("store.cases_path", d.Store.CasesPath)
	viper.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	viper.SetDefault("store.lock_timeout", d.Store.LockTimeout)

	viper.SetDefault("reference.disease_path", d.Reference.DiseasePath)
	viper.SetDefault("reference.medicine_path", d.Reference.MedicinePath)
	viper.SetDefault("reference.cache_size", d.Reference.CacheSize)

	viper.SetDefault("inference.backend", string(d.Inference.Backend))
	viper.SetDefault("inference.classifier_model", d.Inference.ClassifierModel)
	viper.SetDefault("inference.entity_model", d.Inference.EntityModel)
	viper.SetDefault("inference.use_reference_names", d.Inference.UseReferenceNames)
	viper.SetDefault("inference.endpoint", d.Inference.Endpoint)
	viper.SetDefault("inference.api_key", d.Inference.APIKey)
	viper.SetDefault("inference.timeout", d.Inference.Timeout)
	viper.SetDefault("inference.max_retries", d.Inference.MaxRetries)
	viper.SetDefault("inference.breaker_threshold", d.Inference.BreakerThreshold)

	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	viper.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	viper.SetDefault("server.analyze_rate", d.Server.AnalyzeRate)
	viper.SetDefault("server.analyze_burst", d.Server.AnalyzeBurst)
	viper.SetDefault("server.session_idle", d.Server.SessionIdle)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

func loadConfig() error {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	appConfig = cfg
	return nil
}

func configureLogger(cfg types.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openLibrary returns the reference knowledge bases.
func openLibrary() (*reference.Library, error) {
	return reference.NewLibrary(appConfig.Reference)
}

// openInference loads the classifier and extractor, seeding local entity
// patterns with knowledge base names when configured.
func openInference(lib *reference.Library) (inference.Classifier, inference.Extractor, error) {
	var names inference.ReferenceNames
	if appConfig.Inference.UseReferenceNames {
		if facts, err := lib.Diseases(); err == nil {
			for _, f := range facts {
				names.Diseases = append(names.Diseases, f.Name)
			}
		} else if !errors.Is(err, types.ErrStoreUnavailable) {
			return nil, nil, err
		}
		if facts, err := lib.Medicines(); err == nil {
			for _, f := range facts {
				names.Medicines = append(names.Medicines, f.Name)
			}
		} else if !errors.Is(err, types.ErrStoreUnavailable) {
			return nil, nil, err
		}
	}
	return inference.Open(appConfig.Inference, names, logger)
}

func openStore() (casestore.Store, error) {
	return casestore.Open(appConfig.Store, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
