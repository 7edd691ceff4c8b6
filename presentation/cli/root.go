// Package cli is the command line surface of the harness.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ui_harness/domain/interfaces"
	"ui_harness/infrastructure/browser"
	"ui_harness/infrastructure/config"
)

// ErrScenariosFailed is returned by run when at least one scenario failed
var ErrScenariosFailed = errors.New("one or more scenarios failed")

// app holds what the commands share once configuration is loaded
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
	logOut  io.Writer

	// newLauncher builds the browser backend; replaced in tests.
	newLauncher func(cfg *config.Config, logger *logrus.Logger) (interfaces.Launcher, error)
}

func defaultLauncher(cfg *config.Config, logger *logrus.Logger) (interfaces.Launcher, error) {
	return browser.NewLauncher(cfg.Browser.Backend, browser.SeleniumConfig{
		DriverPath:   cfg.Browser.Selenium.DriverPath,
		ChromeBinary: cfg.Browser.Selenium.ChromeBinary,
		Port:         cfg.Browser.Selenium.Port,
	}, logger)
}

// NewRootCommand - creates the ui-harness command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{v: viper.New(), logOut: os.Stderr, newLauncher: defaultLauncher})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ui-harness",
		Short:         "Browser-driven UI verification harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(a.v, a.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = config.NewLogger(cfg.Log, a.logOut)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./ui_harness.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	a.v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(
		newRunCommand(a),
		newListCommand(a),
		newHistoryCommand(a),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, ErrScenariosFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
