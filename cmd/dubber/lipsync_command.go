package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/pipeline"
	"dubber/internal/runstore"
)

func newLipsyncCommand(ctx *commandContext) *cobra.Command {
	var videoURL, audioURL, outPath, runID string

	cmd := &cobra.Command{
		Use:   "lipsync",
		Short: "Run lip-sync on hosted video and audio",
		Long: `Submits the hosted video and dubbed audio to the lip-sync service, waits
for completion and downloads the result. The inputs must be publicly
reachable URLs. With --run the result is recorded against an existing
muxed run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.lipsyncRunner()
			if err != nil {
				return err
			}
			if strings.TrimSpace(runID) == "" {
				jobID, err := runner.Run(cmd.Context(), videoURL, audioURL, outPath)
				if err != nil {
					if jobID != "" {
						return fmt.Errorf("lipsync job %s: %w", jobID, err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lip-synced video written to %s (job %s)\n", outPath, jobID)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			tool, err := ctx.ffmpegTool()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			run, err := store.GetByRunID(cmd.Context(), runID)
			if err != nil {
				return err
			}
			p := pipeline.New(cfg, store, logger, tool, nil, nil, runner)
			if err := p.RunLipsync(cmd.Context(), run, videoURL, audioURL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lip-synced video written to %s (run %s)\n", run.OutputPath, run.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoURL, "video-url", "", "Publicly hosted source video URL")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Publicly hosted dubbed audio URL")
	cmd.Flags().StringVar(&outPath, "out", "synced.mp4", "Output video file (ignored with --run)")
	cmd.Flags().StringVar(&runID, "run", "", "Record the result against this muxed run")
	_ = cmd.MarkFlagRequired("video-url")
	_ = cmd.MarkFlagRequired("audio-url")
	return cmd
}
