package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/casemap/internal/doctree"
)

// Worker processes conversion jobs one at a time.
type Worker struct {
	converter *Converter
	log       *slog.Logger
}

func NewWorker(conv *Converter, log *slog.Logger) *Worker {
	return &Worker{converter: conv, log: log}
}

// Process runs the conversion for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Request.Filename)

	out, err := w.converter.Convert(ctx, job.Request, func(s JobStatus) {
		job.SetStatus(s, string(s))
	})
	if err != nil {
		phase := job.Snapshot().Phase
		switch {
		case errors.Is(err, doctree.ErrNoContent):
			log.Warn("nothing to convert", "error", err)
		case errors.Is(err, context.Canceled):
			log.Info("conversion cancelled")
		default:
			log.Error("conversion failed", "phase", phase, "error", err)
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}

	if out.Result != nil && out.Result.Dropped > 0 {
		job.AddError(droppedMessage(out.Result.Dropped))
	}
	job.Complete(out)
	log.Info("job completed", "topics", out.Topics, "records", out.Records)
}

func droppedMessage(n int) string {
	if n == 1 {
		return "1 case had no module or feature and was skipped"
	}
	return fmt.Sprintf("%d cases had no module or feature and were skipped", n)
}
