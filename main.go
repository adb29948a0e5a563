package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/waldirborbajr/autoupdate/config"
	"github.com/waldirborbajr/autoupdate/logger"
	"github.com/waldirborbajr/autoupdate/updater"
)

// version is set at build time using -ldflags="-X main.version=VERSION"
var version = "0.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	envFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var cfg config.Config

	root := &cobra.Command{
		Use:           "autoupdate",
		Short:         "Check, download and install application updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsConfig(cmd) {
				return nil
			}
			logger.Bootstrap(cmd.ErrOrStderr())
			loaded, err := config.LoadConfig(flags.envFile)
			if err != nil {
				printConfigTips(err)
				return fmt.Errorf("error loading configuration: %w", err)
			}
			cfg = loaded
			logger.InitLogger(logger.Options{
				Debug: cfg.DebugMode || flags.debug,
				File:  cfg.LogFile,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "path to the .env file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	var relaunchArgs string

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the release feed whether a newer version exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Download and install the latest version, then restart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := updater.NewProcessHost(version, strings.Fields(relaunchArgs)...)
			return runInstall(cmd.Context(), cfg, cmd.OutOrStdout(), host)
		},
	}
	installCmd.Flags().StringVar(&relaunchArgs, "relaunch-args", "version", "arguments passed to the updated binary on restart")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Check periodically and install when AUTO_UPDATE is enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cfg, cmd.OutOrStdout(), updater.NewProcessHost(version, os.Args[1:]...))
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent update activity recorded in UPDATE_HISTORY_DB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cfg, cmd.OutOrStdout(), limit)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the running version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(checkCmd, installCmd, watchCmd, historyCmd, versionCmd)
	return root
}

func printConfigTips(err error) {
	if strings.Contains(err.Error(), "UPDATE_CHECK_URL") {
		fmt.Fprintln(os.Stderr, "Suggested action: set UPDATE_CHECK_URL in .env or the environment to the release manifest endpoint")
	}
	fmt.Fprintln(os.Stderr, "Tip: run with DEBUG_MODE=true for more detailed logs.")
}

func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion":
			return false
		}
	}
	return true
}
