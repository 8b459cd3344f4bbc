package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"dubber/internal/runstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded dubbing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := make([]runstore.Status, 0, len(statusFilters))
			for _, raw := range statusFilters {
				status, ok := runstore.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			store, err := runstore.OpenReadOnly(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			out := renderTable(
				[]string{"ID", "Run", "Video", "Stage", "Output", "Updated"},
				buildRunRows(runs, colorize),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)

			for _, run := range runs {
				if run.Status == runstore.StatusFailed && run.ErrorMessage != "" {
					fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(shortRunID(run.RunID), statusError, run.ErrorMessage, colorize))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Only show runs in these statuses")
	return cmd
}

func buildRunRows(runs []*runstore.Run, colorize bool) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		output := run.OutputPath
		if output != "" {
			output = filepath.Base(output)
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			shortRunID(run.RunID),
			filepath.Base(run.VideoPath),
			stageLabel(run.Status, colorize),
			output,
			run.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
