package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redirect-mgmt-go/pkg/cli"
	"redirect-mgmt-go/pkg/cli/tui"
	"redirect-mgmt-go/pkg/config"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath string
	envFiles   []string
	batchFile  string
	noCheck    bool
	altScreen  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tum",
		Short: "Track short links and keep them pointing where they should",
		Long: `tum creates short links through a URL shortening provider and watches them.

Every link is checked on a schedule. A link that redirects somewhere other
than its intended target is pointed back at it; when that keeps failing the
link is moved to the next fallback URL, and removed once no fallback works.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: ~/.config/redirect-mgmt/config.toml)")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading config (default: .env)")

	cmd.Flags().StringVar(&opts.batchFile, "batch", "", "create links for every URL in this file on startup")
	cmd.Flags().BoolVar(&opts.noCheck, "no-check", false, "skip the target reachability check before creating")
	cmd.Flags().BoolVar(&opts.altScreen, "alt-screen", false, "run in the terminal's alternate screen")

	cmd.AddCommand(newConfigCmd(opts), newVersionCmd())
	return cmd
}

func loadApp(opts *rootOptions) (*cli.App, error) {
	if err := config.LoadEnvFiles(opts.envFiles...); err != nil {
		return nil, err
	}
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cli.NewApp(cfg, path), nil
}

func runSession(cmd *cobra.Command, opts *rootOptions) error {
	app, err := loadApp(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx)
	if errors.Is(err, config.ErrNoTokens) {
		return fmt.Errorf("%w: set provider.tokens or provider.tokens_file, or %s_PROVIDER_TOKENS", err, config.EnvPrefix)
	}
	if err != nil {
		return err
	}

	cfg := app.Config()
	model := tui.New(ctx, tui.Options{
		Provider:      rt.Client,
		Channel:       rt.Channel,
		Metrics:       rt.Metrics,
		Logger:        rt.Logger.With("component", "session"),
		Interval:      rt.Interval,
		Version:       Version,
		NoCheck:       opts.noCheck,
		BatchFile:     opts.batchFile,
		CreateTimeout: config.Seconds(cfg.Provider.CreateTimeout),
		UpdateTimeout: config.Seconds(cfg.Monitor.UpdateTimeoutSeconds),
		UpdateRetries: cfg.Monitor.SelfHealRetries,
	})

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	_, runErr := tea.NewProgram(model, programOpts...).Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := rt.Shutdown(shutdownCtx)

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("session failed: %w", runErr)
	}
	return shutdownErr
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration with tokens masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			return app.ShowConfig(cmd.OutOrStdout())
		},
	}

	set := &cobra.Command{
		Use:     "set section.key=value",
		Short:   "Set a configuration value and save the file",
		Example: "  tum config set monitor.interval_seconds=30\n  tum config set provider.tokens=tok1,tok2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			if err := app.SetConfig(args[0]); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration updated successfully")
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tum %s\n", Version)
		},
	}
}
