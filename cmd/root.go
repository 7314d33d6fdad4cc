package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/cq/internal/advisory"
	"github.com/joescharf/cq/internal/checkpoint"
	"github.com/joescharf/cq/internal/git"
	"github.com/joescharf/cq/internal/output"
	"github.com/joescharf/cq/internal/reports"
	"github.com/joescharf/cq/internal/review"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	checkData checkpoint.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "cq",
	Short: "Code quality gate - analyze code and validate checkpoints",
	Long: `cq scores code artifacts on security, performance, and maintainability,
and gates development checkpoints behind multi-role validation.

Run 'cq analyze' against Go source files for a review verdict, or use
'cq checkpoint' to create and validate stage checkpoints.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/cq/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "cq")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CQ")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "cq")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "cq.db"))
	viper.SetDefault("reports_dir", filepath.Join(defaultConfigDir, "reports"))
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("review.use_advisory", false)
	viper.SetDefault("validate.role_timeout", "2m")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and advisory client are initialized lazily - only when commands
	// actually need them. This allows config/version to run without a db.
}

// getStore returns the shared checkpoint store, initializing it on first call.
func getStore() (checkpoint.Store, error) {
	if checkData != nil {
		return checkData, nil
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s, err := checkpoint.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	checkData = s
	return checkData, nil
}

// getReports returns a report writer rooted at the configured reports dir.
func getReports() *reports.Writer {
	return reports.NewWriter(viper.GetString("reports_dir"))
}

// getAdvisory builds the LLM advisory client, or errors when no API key is
// configured.
func getAdvisory() (*advisory.Client, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	return advisory.NewClient(apiKey, viper.GetString("anthropic.model")), nil
}

// getOrchestrator wires the checkpoint orchestrator from the shared store,
// the advisory validator, and the report writer.
func getOrchestrator() (*checkpoint.Orchestrator, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	adv, err := getAdvisory()
	if err != nil {
		return nil, err
	}

	o := checkpoint.NewOrchestrator(s, adv, getReports())
	if d, err := time.ParseDuration(viper.GetString("validate.role_timeout")); err == nil && d > 0 {
		o.SetRoleTimeout(d)
	}
	return o, nil
}

// getReviewer builds a code reviewer; the advisory pass is attached only
// when enabled and configured.
func getReviewer() *review.Reviewer {
	cfg := review.DefaultConfig()

	var adv advisory.Reviewer
	if cfg.UseAdvisory {
		if c, err := getAdvisory(); err == nil {
			adv = c
		} else {
			ui.Warning("Advisory review disabled: %v", err)
			cfg.UseAdvisory = false
		}
	}

	return review.NewReviewer(adv, git.NewClient(), cfg)
}
