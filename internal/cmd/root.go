// Package cmd implements the tabtint command line.
package cmd

import (
	"strings"

	"github.com/Iron-Ham/tabtint/internal/config"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "tabtint",
	Short: "Rename and color editor query tabs by connection",
	Long: `tabtint watches the query documents open in an editor, renames new
tabs after the group their connection belongs to (Prod1, Prod2, ...) and keeps
a generated block in the editor's colorization file so each group's tabs get
their configured color.

Groups are defined in a rule file (see 'tabtint rules').`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tabtint/config.yaml)")
	rootCmd.PersistentFlags().String("rules", "", "rule file (default is $HOME/.config/tabtint/rules.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("rules.path", rootCmd.PersistentFlags().Lookup("rules"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TABTINT")
	// e.g. TABTINT_ORCHESTRATOR_POLL_INTERVAL_MS for orchestrator.poll_interval_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig returns the validated config. Unlike config.Get it reports
// validation problems instead of silently using defaults.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
