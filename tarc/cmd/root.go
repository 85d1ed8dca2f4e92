/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/indrora/ustar/tarc/internal/config"
	"github.com/indrora/ustar/tarc/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tarc",
	Short: "tarc reads and writes ustar archives and provisioning bundles",
	Long: `tarc is a small ustar archive tool.

It extracts plain tar streams and base64 provisioning bundles,
lists archive contents, and builds bundles from local files.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// GenDocs writes markdown for every command to dir.
func GenDocs(dir string) error {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return errors.Wrap(err, "failed to make docs dir")
	}
	return doc.GenMarkdownTree(rootCmd, dir)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write detailed information to the terminal")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "tarc"))
		}
		viper.AddConfigPath("/etc/tarc")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("TARC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	if err := logging.Setup(level, cfg.LogOutputDir, cmd.ErrOrStderr()); err != nil {
		return errors.Wrap(err, "could not set up logging")
	}
	return nil
}

// openInput opens a named file, or stdin for "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", name)
	}
	return file, nil
}

// openOutput creates a named file, or uses stdout for "-".
func openOutput(cmd *cobra.Command, name string) (io.WriteCloser, error) {
	if name == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", name)
	}
	return file, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
