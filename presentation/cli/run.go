package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"ui_harness/application/capture"
	"ui_harness/application/executor"
	"ui_harness/application/scenarios"
	"ui_harness/domain/entities"
	"ui_harness/infrastructure/config"
	"ui_harness/infrastructure/storage"
	"ui_harness/presentation/terminal"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		file    string
		headed  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios, all built-in ones when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("headed") {
				a.cfg.Browser.Headless = !headed
			}

			registry, fromFile, err := loadRegistry(a.cfg, file)
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 && file != "" {
				names = fromFile
			}
			selected, unknown := registry.Select(names)
			if len(unknown) > 0 {
				return fmt.Errorf("unknown scenarios: %s (see the list command)", strings.Join(unknown, ", "))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results, err := a.run(ctx, selected, terminal.NewReporter(cmd.OutOrStdout(), !noColor))
			if err != nil {
				return err
			}
			for _, res := range results {
				if !res.Passed() {
					return ErrScenariosFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with additional scenarios")
	cmd.Flags().String("base-url", "", "base URL of the application under test")
	cmd.Flags().String("backend", "", "browser backend (playwright or selenium)")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	a.v.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
	a.v.BindPFlag("browser.backend", cmd.Flags().Lookup("backend"))

	return cmd
}

// run executes the scenarios with the configured backend and prints the summary
func (a *app) run(ctx context.Context, selected []entities.Scenario, reporter *terminal.Reporter) ([]entities.ScenarioResult, error) {
	launcher, err := a.newLauncher(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	options := []executor.Option{executor.WithReporter(reporter)}
	if a.cfg.History.Enabled {
		history, err := storage.NewRunHistory(a.cfg.History.Dir)
		if err != nil {
			return nil, err
		}
		options = append(options, executor.WithHistory(history))
	}

	exec := executor.NewExecutor(launcher, capture.NewCapturer(a.cfg.Artifacts.Dir, a.logger), a.logger, executorOptions(a.cfg), options...)
	results := exec.RunAll(ctx, selected)
	reporter.Summary(results)
	return results, nil
}

func executorOptions(cfg *config.Config) executor.Options {
	return executor.Options{
		Session: entities.SessionOptions{
			BaseURL: cfg.BaseURL,
			Viewport: entities.Viewport{
				Width:  cfg.Browser.Viewport.Width,
				Height: cfg.Browser.Viewport.Height,
			},
			Headless: cfg.Browser.Headless,
			SlowMoMs: cfg.Browser.SlowMo,
		},
		NavigationTimeout: cfg.Timeouts.Navigation,
		LocateTimeout:     cfg.Timeouts.Locate,
		ActionTimeout:     cfg.Timeouts.Action,
		WaitTimeout:       cfg.Timeouts.Wait,
	}
}

// loadRegistry returns the built-in scenarios plus those of scenarios.dir and
// file, and the names defined in file.
func loadRegistry(cfg *config.Config, file string) (*scenarios.Registry, []string, error) {
	registry := scenarios.NewRegistry()

	if cfg.Scenarios.Dir != "" {
		loaded, err := scenarios.LoadDir(cfg.Scenarios.Dir)
		if err != nil {
			return nil, nil, err
		}
		for _, sc := range loaded {
			registry.Add(sc)
		}
	}

	var fromFile []string
	if file != "" {
		loaded, err := scenarios.LoadFile(file)
		if err != nil {
			return nil, nil, err
		}
		for _, sc := range loaded {
			registry.Add(sc)
			fromFile = append(fromFile, sc.Name)
		}
	}
	return registry, fromFile, nil
}
