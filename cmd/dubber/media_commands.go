package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dubber/internal/media/ffmpeg"
	"dubber/internal/media/pcm"
	"dubber/internal/speaker"
	"dubber/internal/subtitles"
)

func newSpeakerRefCommand(ctx *commandContext) *cobra.Command {
	var videoPath, srtPath, outPath string

	cmd := &cobra.Command{
		Use:   "speaker-ref",
		Short: "Extract a speaker reference clip from the source video",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			segments, err := subtitles.ParseSRT(srtPath)
			if err != nil {
				return err
			}
			sourceWAV := filepath.Join(filepath.Dir(outPath), ".source_audio.wav")
			if err := tool.ExtractAudio(cmd.Context(), videoPath, sourceWAV, cfg.Audio.SampleRate); err != nil {
				return err
			}
			source, err := pcm.LoadWAV(sourceWAV)
			if err != nil {
				return err
			}
			ref, err := speaker.ExtractReference(source, segments, speaker.OptionsFromConfig(cfg.Speaker), logger)
			if err != nil {
				return err
			}
			if err := pcm.SaveWAV(outPath, ref); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %.2fs speaker reference to %s\n", ref.DurationSec(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Source video file")
	cmd.Flags().StringVar(&srtPath, "srt", "", "Subtitle file; spoken segments guide sampling")
	cmd.Flags().StringVar(&outPath, "out", "speaker_ref.wav", "Output reference WAV")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}

func newCloneVoiceCommand(ctx *commandContext) *cobra.Command {
	var samplePath, name string

	cmd := &cobra.Command{
		Use:   "clone-voice",
		Short: "Clone a voice from a reference sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.synthesizer()
			if err != nil {
				return err
			}
			voiceID, err := client.CloneVoice(cmd.Context(), name, samplePath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created voice %s\n", voiceID)
			fmt.Fprintln(cmd.OutOrStdout(), "Set tts.voice_id (or ELEVENLABS_VOICE_ID) to use it for synthesis.")
			return nil
		},
	}

	cmd.Flags().StringVar(&samplePath, "sample", "", "Reference audio sample")
	cmd.Flags().StringVar(&name, "name", "dubber clone", "Name for the cloned voice")
	_ = cmd.MarkFlagRequired("sample")
	return cmd
}

func newListVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list-voices",
		Short: "List the voices available to the configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.synthesizer()
			if err != nil {
				return err
			}
			voices, err := client.Voices(cmd.Context())
			if err != nil {
				return err
			}
			if len(voices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No voices available")
				return nil
			}
			rows := make([][]string, 0, len(voices))
			for _, voice := range voices {
				rows = append(rows, []string{voice.VoiceID, voice.Name, voice.Category})
			}
			out := renderTable(
				[]string{"Voice ID", "Name", "Category"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var videoPath, audioPath, outPath string
	var keepOriginal bool

	cmd := &cobra.Command{
		Use:   "mux",
		Short: "Mux a dubbed audio track into the source video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tool, err := ctx.ffmpegTool()
			if err != nil {
				return err
			}
			req := ffmpeg.MuxRequest{
				VideoPath:         videoPath,
				AudioPath:         audioPath,
				OutputPath:        outPath,
				KeepOriginalAudio: keepOriginal,
				TargetLang:        cfg.Translation.TargetLang,
				SourceLang:        cfg.Translation.SourceLang,
			}
			if err := tool.Mux(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Muxed video written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Source video file")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Dubbed audio track")
	cmd.Flags().StringVar(&outPath, "out", "", "Output video file")
	cmd.Flags().BoolVar(&keepOriginal, "keep-original", false, "Keep the source audio as a second track")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var inputPath, outPath string
	var seconds float64

	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Trim trailing seconds off a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tool, err := ctx.ffmpegTool()
			if err != nil {
				return err
			}
			if err := tool.TrimTail(cmd.Context(), cfg.FFprobeBinary(), inputPath, outPath, seconds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trimmed video written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Input video file")
	cmd.Flags().StringVar(&outPath, "out", "", "Output video file")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Seconds to remove from the end")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("seconds")
	return cmd
}
