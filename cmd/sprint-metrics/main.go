/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Logger.Error().Err(err).Msg("sprint-metrics failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		g    globalOptions
		opts reportOptions
	)
	root := &cobra.Command{
		Use:   "sprint-metrics",
		Short: "Sprint commitment and delivery metrics from Jira",
		Long: `Generate sprint metrics around committed and uncommitted tickets.

A ticket counts as committed when its commitment date field is set on or
before the sprint end. Reports the active sprint by default, or every sprint
between --since and --until.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g.envExplicit = cmd.Flags().Changed("environment")
			opts.activeExplicit = cmd.Flags().Changed("active")
			return runReport(cmd.Context(), cmd.OutOrStdout(), g, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.envFile, "environment", "e", ".env", "Environment file with Jira credentials and settings")
	pf.BoolVarP(&g.debug, "debug", "d", false, "Debug logging")
	pf.StringVarP(&g.board, "board", "b", "", "Jira board name or numeric id")

	f := root.Flags()
	f.BoolVarP(&opts.active, "active", "a", true, "Report the active sprint (default when --since is not given)")
	f.StringVarP(&opts.file, "file", "f", "", "Write CSV data to this path")
	f.BoolVar(&opts.dump, "dump", false, "Save fetched sprints and issues to CAPTURE_LOCATION")
	f.BoolVar(&opts.offline, "offline", false, "Replay sprints and issues saved with --dump instead of calling Jira")
	f.StringVarP(&opts.since, "since", "s", "", "Report sprints starting on or after this date (YYYY-MM-DD)")
	f.StringVarP(&opts.until, "until", "u", "", "Report sprints ending on or before this date (YYYY-MM-DD, default tomorrow)")
	f.BoolVar(&opts.summarize, "summarize", false, "Append a narrative summary from OpenAI")

	root.AddCommand(newServeCommand(&g), newScheduleCommand(&g))
	return root
}

func newServeCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API and the scheduled digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			g.envExplicit = cmd.Flags().Changed("environment")
			return serve(cmd.Context(), *g, true)
		},
	}
}

func newScheduleCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run only the scheduled digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			g.envExplicit = cmd.Flags().Changed("environment")
			return serve(cmd.Context(), *g, false)
		},
	}
}

// Errors raised before the configured logger exists still go to stderr.
func init() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
