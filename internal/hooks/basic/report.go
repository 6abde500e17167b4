package basic

import (
	"context"
	"log/slog"

	"parcel/internal/logging"
	"parcel/internal/publish"
)

// Reporter is the post-phase hook: after every completed sweep it logs one
// consolidated summary of task statuses across the whole tree.
type Reporter struct {
	logger *slog.Logger
}

func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{logger: logger.With(logging.String(logging.FieldComponent, "report"))}
}

func (r *Reporter) PostValidate(_ context.Context, tree *publish.Tree) error {
	r.report("validate", tree)
	return nil
}

func (r *Reporter) PostPublish(_ context.Context, tree *publish.Tree) error {
	r.report("publish", tree)
	return nil
}

func (r *Reporter) PostFinalize(_ context.Context, tree *publish.Tree) error {
	r.report("finalize", tree)
	return nil
}

func (r *Reporter) report(phase string, tree *publish.Tree) {
	counts := make(map[publish.Status]int)
	total := 0
	for _, task := range tree.Tasks() {
		counts[task.Status()]++
		total++
	}
	r.logger.Info("phase report",
		logging.String(logging.FieldPhase, phase),
		logging.Int("tasks", total),
		logging.Int("valid", counts[publish.StatusValid]),
		logging.Int("invalid", counts[publish.StatusInvalid]),
		logging.Int("published", counts[publish.StatusPublished]),
		logging.Int("finalized", counts[publish.StatusFinalized]),
		logging.Int("failed", counts[publish.StatusFailed]))
}
