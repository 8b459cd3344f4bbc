package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/media/ffmpeg"
	"dubber/internal/media/pcm"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/services"
	"dubber/internal/stage"
)

const testSRT = `1
00:00:00,000 --> 00:00:01,500
Hello there.

2
00:00:02,000 --> 00:00:03,500
See you soon.
`

type fakeTranslator struct {
	err error
}

func (f *fakeTranslator) TranslateSegments(_ context.Context, segments []segment.Segment) ([]segment.Segment, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]segment.Segment, len(segments))
	copy(out, segments)
	for i := range out {
		out[i].TargetText = "DE: " + out[i].SourceText
	}
	return out, nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(_ context.Context, text, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(text), 0o644)
}

func writeFakeFFprobe(t *testing.T, durationSec float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := fmt.Sprintf("#!/bin/sh\necho '{\"streams\":[{\"codec_type\":\"video\"}],\"format\":{\"duration\":\"%.1f\"}}'\n", durationSec)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func fakeTool(t *testing.T, sampleRate int) *ffmpeg.Tool {
	t.Helper()
	tool := ffmpeg.New("ffmpeg", logging.NewNop())
	tool.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		out := args[len(args)-1]
		if strings.HasSuffix(out, ".wav") {
			samples := make([]float64, sampleRate)
			for i := range samples {
				samples[i] = 0.2
			}
			return pcm.SaveWAV(out, pcm.Clip{Samples: samples, SampleRate: sampleRate})
		}
		return os.WriteFile(out, []byte("muxed"), 0o644)
	})
	return tool
}

func testPipeline(t *testing.T, translator Translator) (*Pipeline, *runstore.Store, *runstore.Run, config.Config) {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.FFprobe = writeFakeFFprobe(t, 4.0)
	cfg.TTS.Workers = 2

	store, err := runstore.Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	videoPath := filepath.Join(base, "talk.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	srtPath := filepath.Join(base, "talk.srt")
	if err := os.WriteFile(srtPath, []byte(testSRT), 0o644); err != nil {
		t.Fatal(err)
	}
	run, err := store.NewRun(context.Background(), videoPath, srtPath)
	if err != nil {
		t.Fatal(err)
	}
	p := New(&cfg, store, logging.NewNop(), fakeTool(t, cfg.Audio.SampleRate), translator, fakeSynth{}, nil)
	return p, store, run, cfg
}

func TestExecuteFullRun(t *testing.T) {
	p, store, run, cfg := testPipeline(t, &fakeTranslator{})
	ctx := context.Background()

	if err := p.Execute(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.Status != runstore.StatusCompleted {
		t.Errorf("status = %s, want completed", run.Status)
	}

	segments, err := segment.ReadJSONL(run.SegmentsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 2 || segments[0].TargetText != "DE: Hello there." {
		t.Errorf("segments artifact = %+v", segments)
	}
	for _, idx := range []int{1, 2} {
		clip := filepath.Join(run.ClipsDir, segment.ClipName(idx))
		if _, err := os.Stat(clip); err != nil {
			t.Errorf("clip for segment %d missing: %v", idx, err)
		}
	}
	track, err := pcm.LoadWAV(run.AudioPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(track.Samples) != 4*cfg.Audio.SampleRate {
		t.Errorf("track length = %d, want %d", len(track.Samples), 4*cfg.Audio.SampleRate)
	}
	if _, err := os.Stat(run.OutputPath); err != nil {
		t.Errorf("muxed output missing: %v", err)
	}
	if !strings.HasSuffix(run.OutputPath, "talk_dubbed.mp4") {
		t.Errorf("output path = %q", run.OutputPath)
	}

	stored, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != runstore.StatusCompleted {
		t.Errorf("persisted status = %s", stored.Status)
	}
}

func TestExecuteTranslationFailureMarksRunFailed(t *testing.T) {
	stageErr := services.Wrap(services.ErrUpstream, "translate", "segment 1", "http 500", nil)
	p, store, run, _ := testPipeline(t, &fakeTranslator{err: stageErr})
	ctx := context.Background()

	err := p.Execute(ctx, run)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("err = %v", err)
	}
	stored, getErr := store.GetByID(ctx, run.ID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if stored.Status != runstore.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "segment 1") {
		t.Errorf("error message = %q", stored.ErrorMessage)
	}
}

type fakeLipsyncRunner struct {
	jobID string
	err   error
}

func (f *fakeLipsyncRunner) Run(_ context.Context, videoURL, audioURL, outputPath string) (string, error) {
	if f.err != nil {
		return f.jobID, f.err
	}
	if err := os.WriteFile(outputPath, []byte("synced"), 0o644); err != nil {
		return f.jobID, err
	}
	return f.jobID, nil
}

func TestRunLipsyncAfterMux(t *testing.T) {
	p, store, run, _ := testPipeline(t, &fakeTranslator{})
	p.lipsync = &fakeLipsyncRunner{jobID: "job-11"}
	ctx := context.Background()

	if err := p.Execute(ctx, run); err != nil {
		t.Fatal(err)
	}
	// Roll the run back to muxed so the lip-sync stage can claim it.
	if err := store.Transition(ctx, run.ID, runstore.StatusCompleted, runstore.StatusMuxed); err != nil {
		t.Fatal(err)
	}
	run.Status = runstore.StatusMuxed

	if err := p.RunLipsync(ctx, run, "https://cdn/video.mp4", "https://cdn/audio.wav"); err != nil {
		t.Fatal(err)
	}
	if run.LipsyncJobID != "job-11" {
		t.Errorf("job id = %q", run.LipsyncJobID)
	}
	if !strings.HasSuffix(run.OutputPath, "talk_dubbed_synced.mp4") {
		t.Errorf("output path = %q", run.OutputPath)
	}
	if _, err := os.Stat(run.OutputPath); err != nil {
		t.Errorf("synced output missing: %v", err)
	}
	stored, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != runstore.StatusCompleted {
		t.Errorf("status = %s", stored.Status)
	}
}

func TestRunLipsyncRejectsOverlongVideo(t *testing.T) {
	p, store, run, _ := testPipeline(t, &fakeTranslator{})
	p.lipsync = &fakeLipsyncRunner{jobID: "job-12"}
	p.cfg.Lipsync.MaxDurationSeconds = 3
	ctx := context.Background()

	if err := p.Execute(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.Transition(ctx, run.ID, runstore.StatusCompleted, runstore.StatusMuxed); err != nil {
		t.Fatal(err)
	}
	run.Status = runstore.StatusMuxed

	err := p.RunLipsync(ctx, run, "https://cdn/video.mp4", "https://cdn/audio.wav")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "max_duration_seconds") {
		t.Errorf("error should point at the duration ceiling: %v", err)
	}
	if run.LipsyncJobID != "" {
		t.Errorf("no job should have been submitted, got %q", run.LipsyncJobID)
	}
}

func TestHealthReportsUnconfiguredServices(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	fakeBinary := writeFakeFFprobe(t, 4.0)
	cfg.Paths.FFmpeg = fakeBinary
	cfg.Paths.FFprobe = fakeBinary

	p := New(&cfg, nil, logging.NewNop(), nil, nil, nil, nil)
	byName := make(map[string]stage.Health)
	for _, health := range p.Health(context.Background()) {
		byName[health.Name] = health
	}
	for _, name := range []string{"translate", "synthesize"} {
		if byName[name].Ready {
			t.Errorf("stage %s should report unready without its service", name)
		}
		if byName[name].Detail == "" {
			t.Errorf("stage %s unready with no detail", name)
		}
	}
	for _, name := range []string{"align", "mux"} {
		if !byName[name].Ready {
			t.Errorf("stage %s should be ready: %s", name, byName[name].Detail)
		}
	}

	cfg.Paths.FFmpeg = filepath.Join(base, "missing-ffmpeg")
	for _, health := range p.Health(context.Background()) {
		if health.Name == "mux" && health.Ready {
			t.Error("mux should report unready when ffmpeg is missing")
		}
	}
}

func TestRunLipsyncRequiresURLs(t *testing.T) {
	p, _, run, _ := testPipeline(t, &fakeTranslator{})
	p.lipsync = &fakeLipsyncRunner{}
	if err := p.RunLipsync(context.Background(), run, "", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
