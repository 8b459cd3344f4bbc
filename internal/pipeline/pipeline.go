// Package pipeline wires the dubbing stages together: each stage is a
// runstore-aware handler over the adapter packages, and the full run
// executes them in order against one persisted run.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/media/ffmpeg"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/stage"
)

// Translator supplies translated segments.
type Translator interface {
	TranslateSegments(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error)
}

// Synthesizer renders one segment's text into a clip file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// LipsyncRunner drives a lip-sync generation to a downloaded result.
type LipsyncRunner interface {
	Run(ctx context.Context, videoURL, audioURL, outputPath string) (string, error)
}

// Pipeline holds the shared dependencies every stage draws from.
type Pipeline struct {
	cfg    *config.Config
	store  *runstore.Store
	logger *slog.Logger
	ffmpeg *ffmpeg.Tool

	translator  Translator
	synthesizer Synthesizer
	lipsync     LipsyncRunner
}

// New assembles a pipeline over already-constructed adapters. Adapters a
// run does not reach may be nil; the owning stage fails with a
// configuration error if invoked.
func New(cfg *config.Config, store *runstore.Store, logger *slog.Logger, tool *ffmpeg.Tool, translator Translator, synthesizer Synthesizer, lipsync LipsyncRunner) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		logger:      logger,
		ffmpeg:      tool,
		translator:  translator,
		synthesizer: synthesizer,
		lipsync:     lipsync,
	}
}

// RunDir returns the scratch directory for one run's artifacts.
func (p *Pipeline) RunDir(run *runstore.Run) string {
	return filepath.Join(p.cfg.Paths.WorkDir, run.RunID)
}

// OutputPath returns the final dubbed video location for a run.
func (p *Pipeline) OutputPath(run *runstore.Run) string {
	base := filepath.Base(run.VideoPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(p.cfg.Paths.WorkDir, stem+"_dubbed"+ext)
}

type stageSpec struct {
	name       string
	processing runstore.Status
	done       runstore.Status
	handler    stage.Handler
}

func (p *Pipeline) stageSpecs() []stageSpec {
	return []stageSpec{
		{"translate", runstore.StatusTranslating, runstore.StatusTranslated, &translateStage{p: p}},
		{"synthesize", runstore.StatusSynthesizing, runstore.StatusSynthesized, &synthesizeStage{p: p}},
		{"align", runstore.StatusAligning, runstore.StatusAligned, &alignStage{p: p}},
		{"mux", runstore.StatusMuxing, runstore.StatusMuxed, &muxStage{p: p}},
	}
}

// Health reports the readiness of every local stage without touching run
// state. A stage whose handler does not implement a check counts as ready.
func (p *Pipeline) Health(ctx context.Context) []stage.Health {
	specs := p.stageSpecs()
	out := make([]stage.Health, 0, len(specs))
	for _, spec := range specs {
		if checker, ok := spec.handler.(stage.HealthChecker); ok {
			out = append(out, checker.Health(ctx))
			continue
		}
		out = append(out, stage.Healthy(spec.name))
	}
	return out
}

// Execute runs the local stages in order, stopping at the first failure.
// Lip-syncing requires publicly hosted inputs and stays a separate command;
// a run is complete once the dubbed video is muxed.
func (p *Pipeline) Execute(ctx context.Context, run *runstore.Run) error {
	for _, spec := range p.stageSpecs() {
		if err := stage.Run(ctx, stage.Options{
			Logger:     p.logger,
			Store:      p.store,
			Handler:    spec.handler,
			StageName:  spec.name,
			Processing: spec.processing,
			Done:       spec.done,
			Run:        run,
		}); err != nil {
			return err
		}
	}
	if run.Status != runstore.StatusCompleted {
		if err := p.store.Transition(ctx, run.ID, run.Status, runstore.StatusCompleted); err != nil {
			return err
		}
		run.Status = runstore.StatusCompleted
	}
	p.logger.Info("dubbing run completed",
		logging.String(logging.FieldRunID, run.RunID),
		logging.String("output", run.OutputPath))
	return nil
}
