// Package cmd implements the postkeep CLI using Cobra, with settings
// resolved through Viper from flags, POSTKEEP_* environment variables and
// an optional YAML config file.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalhel/postkeep/core/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "postkeep",
	Short: "postkeep — archive paywalled creator posts",
	Long: `postkeep archives posts you have access to on a creator platform. It
renders each post in a logged-in browser session, extracts an ordered list of
content blocks, cleans them up and stores the result with its media.

Usage:
  postkeep extract <file-or-url> --markdown
  postkeep archive <creator-posts-url>
  postkeep serve`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.postkeep.yaml)")
	rootCmd.PersistentFlags().String("db", "", "archive database path (default: ~/.postkeep/archive.db)")
	rootCmd.PersistentFlags().String("rules", "", "YAML file overriding the built-in extraction tables")
	rootCmd.PersistentFlags().String("chrome_path", "", "Chrome binary (default: auto-detect)")
	rootCmd.PersistentFlags().String("profile_dir", "", "Chrome profile holding the logged-in session")
	rootCmd.PersistentFlags().Bool("headful", false, "show the browser window, e.g. to log in")
	rootCmd.PersistentFlags().String("redis_url", "", "redis URL for the thumbnail cache (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	for _, key := range []string{"db", "rules", "chrome_path", "profile_dir", "headful", "redis_url", "verbose"} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".postkeep")
	}

	viper.SetEnvPrefix("POSTKEEP")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".postkeep")
	viper.SetDefault("db", filepath.Join(dataDir, "archive.db"))
	viper.SetDefault("media_dir", filepath.Join(dataDir, "media"))
	viper.SetDefault("addr", "127.0.0.1:8080")

	configErr := viper.ReadInConfig()
	setupLogging(viper.GetBool("verbose"))

	if configErr == nil {
		slog.Debug("Using config file", "path", viper.ConfigFileUsed())
	} else if _, ok := configErr.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		slog.Warn("Could not read config file", "path", cfgFile, "error", configErr)
	}
}

// setupLogging installs a text handler on stderr as the default logger.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadRules returns the built-in tables, overlaid with the configured
// rules file when there is one.
func loadRules() (*rules.Rules, error) {
	path := viper.GetString("rules")
	if path == "" {
		return rules.Default(), nil
	}
	r, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	slog.Debug("Loaded rules", "path", path)
	return r, nil
}
