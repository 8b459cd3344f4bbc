package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/runstore"
	"dubber/internal/services"
)

// Options control stage execution and run persistence.
type Options struct {
	Logger     *slog.Logger
	Store      *runstore.Store
	Handler    Handler
	StageName  string
	Processing runstore.Status
	Done       runstore.Status
	Run        *runstore.Run
}

// Run executes a stage with the processing/done transition semantics the
// pipeline uses: the run moves to the processing status before work starts,
// to the done status on success, and to failed with a recorded message and
// classification on error.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return fmt.Errorf("run store is required")
	}
	if opts.Run == nil {
		return fmt.Errorf("run is required")
	}

	stageCtx := services.WithStage(services.WithRunID(ctx, opts.Run.RunID), opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("video", opts.Run.VideoPath))

	if err := opts.Store.Transition(stageCtx, opts.Run.ID, opts.Run.Status, opts.Processing); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	opts.Run.Status = opts.Processing

	if err := opts.Handler.Prepare(stageCtx, opts.Run); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Store, opts.Run, err)
	}
	if err := opts.Store.Update(stageCtx, opts.Run); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Run); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Store, opts.Run, err)
	}

	if opts.Run.Status == opts.Processing {
		opts.Run.Status = opts.Done
	}
	if err := opts.Store.Update(stageCtx, opts.Run); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(opts.Run.Status)))
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, store *runstore.Store, run *runstore.Run, stageErr error) error {
	message := strings.TrimSpace(stageErr.Error())
	run.Status = runstore.StatusFailed
	run.ErrorMessage = message

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_kind", services.Kind(stageErr)),
		logging.Error(stageErr))
	if err := store.MarkFailed(ctx, run.ID, message); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	return stageErr
}
