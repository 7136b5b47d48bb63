package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/config"
	"github.com/vedsharma/apiplay/internal/environment"
	"github.com/vedsharma/apiplay/internal/format"
	"github.com/vedsharma/apiplay/internal/logging"
	"github.com/vedsharma/apiplay/internal/storage"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "apiplay",
	Short: "An API playground for the terminal",
	Long: `apiplay sends HTTP requests, organizes them into collections, resolves
{{variables}} from environments, imports and exports Postman v2.1 collections,
and generates code samples.

Examples:
  apiplay get https://api.example.com/users
  apiplay env set baseUrl https://api.example.com
  apiplay post '{{baseUrl}}/users' -d '{"name": "John"}' -c my-api
  apiplay import shop.postman_collection.json
  apiplay code my-api "Create user" --lang python`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.apiplay/config.yaml)")
	flags.BoolP("verbose", "v", false, "Show response headers")
	flags.String("storage", "", "Storage backend: sqlite, json or memory")
	flags.String("data-dir", "", "Directory for stored data (default ~/.apiplay)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	_ = v.BindPFlag(config.KeyStorage, flags.Lookup("storage"))
	_ = v.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
}

func initConfig() {
	// Load .env file if it exists (optional, warn if malformed)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
	}

	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		exitOnError("Failed to load configuration", err)
	}
	cfg = loaded

	logger = logging.New(logging.ConfigFor(cfg.LogLevel, cfg.LogFormat))
	if cfg.File != "" {
		logger.Debug("loaded config", "file", cfg.File)
	}
}

// openStore opens the configured storage backend
func openStore() storage.Store {
	opts := cfg.StorageOptions()
	opts.Logger = logger.With(slog.String("component", "storage"))

	store, err := storage.Open(cfg.Storage, opts)
	if err != nil {
		exitOnError("Failed to open storage", err)
	}
	return store
}

// openEnvironments loads the environment store on top of store
func openEnvironments(store storage.Store) *environment.Store {
	return environment.NewStore(store, logger.With(slog.String("component", "environment")))
}

func exitOnError(msg string, err error) {
	format.PrintError(fmt.Sprintf("%s: %v", msg, err))
	os.Exit(1)
}
