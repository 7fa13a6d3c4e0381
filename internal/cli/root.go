package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/proofvote/internal/logging"
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const version = "proofvote v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proofvote",
	Short: "proofvote - NLI ensemble verification of generated proofs",
	Long: `proofvote generates natural-language proofs with large language models
and verifies them with an ensemble of natural-language-inference classifiers.

Each proof step must be entailed by the premise and the steps before it.
Every classifier grades the chain independently and the ensemble accepts
a proof when at least half of the classifiers vote for it.

Two attempts can be reconciled: a proof rejected in the first attempt is
replaced by its second-attempt record before metrics are computed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of proofvote.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.proofvote/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env files, the config file and ENV variables
func initConfig() {
	// Secrets usually live in .env.secret next to the working tree
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.secret")

	if err := setDefaults(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.proofvote")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PROOFVOTE_*, e.g.
	// PROOFVOTE_NLI_BASE_URL for nli.base_url
	viper.SetEnvPrefix("PROOFVOTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of the default configuration so that
// AutomaticEnv can override keys the config file does not mention
func setDefaults() error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return err
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	return nil
}

// loadConfig resolves the effective configuration: defaults, config file,
// environment, then flags. Well-known provider env vars fill empty secrets.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Stats.BaselineIndex < 0 {
		return nil, fmt.Errorf("stats.baseline_index must not be negative, got %d", cfg.Stats.BaselineIndex)
	}

	if cfg.Generation.APIKey == "" {
		switch strings.ToLower(cfg.Generation.Provider) {
		case "anthropic", "claude":
			cfg.Generation.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.Generation.BaseURL == "" {
				cfg.Generation.BaseURL = baseURL
			}
		default:
			cfg.Generation.APIKey = os.Getenv("OPENROUTER_API_KEY")
			if cfg.Generation.APIKey == "" {
				cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		}
	}
	if cfg.NLI.Token == "" {
		cfg.NLI.Token = os.Getenv("HF_TOKEN")
	}

	return cfg, nil
}

// newLogger builds the run logger; --verbose lowers the level to debug
// unless --log-level was given explicitly
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if verbose && logLevel == "" {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.Format, cfg.Logging.Path)
}

// printBanner writes a section banner to stderr
func printBanner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}
