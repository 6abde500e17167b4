package manager

import (
	"context"

	"github.com/google/uuid"

	"parcel/internal/hook"
	"parcel/internal/logging"
	"parcel/internal/pipeline"
	"parcel/internal/publish"
)

// Failure records one task that did not validate: Err is nil when the hook
// returned false without detail, non-nil when it errored.
type Failure struct {
	Task *publish.Task
	Err  error
}

// phaseRunner is what a task's plugin must provide to participate in a
// phase sweep. Tasks built by AttachPlugins always carry one.
type phaseRunner interface {
	publish.Plugin
	RunValidate(ctx context.Context, task *publish.Task) (bool, error)
	RunPublish(ctx context.Context, task *publish.Task) error
	RunFinalize(ctx context.Context, task *publish.Task) error
	RunUndo(ctx context.Context, task *publish.Task)
}

func runnerFor(task *publish.Task) (phaseRunner, error) {
	runner, ok := task.Plugin().(phaseRunner)
	if !ok {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, task.Name(), "phase",
			"task plugin does not implement the phase contract", nil)
	}
	return runner, nil
}

// Validate sweeps every task the generator yields, attempting all of them
// regardless of failures, and returns the accumulated failures. The
// post-validate hook runs once after the sweep. A nil gen means the
// default tree-order traversal.
func (m *Manager) Validate(ctx context.Context, gen TaskGenerator) ([]Failure, error) {
	if gen == nil {
		gen = NewTreeGenerator(m.tree)
	}
	ctx = m.phaseContext(ctx, pipeline.PhaseValidate)
	logger := m.logger.With(logging.String(logging.FieldPhase, string(pipeline.PhaseValidate)))

	var failures []Failure
	var prev *Outcome
	for {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		task, ok := gen.Next(prev)
		if !ok {
			break
		}
		runner, err := runnerFor(task)
		if err != nil {
			return failures, err
		}
		ok, err = runner.RunValidate(ctx, task)
		m.yield()
		if ok && err == nil {
			task.SetStatus(publish.StatusValid)
		} else {
			task.SetStatus(publish.StatusInvalid)
			failures = append(failures, Failure{Task: task, Err: err})
		}
		prev = &Outcome{Task: task, OK: ok && err == nil, Err: err}
	}

	logger.Info("validation sweep complete",
		logging.Int("failures", len(failures)))
	m.runPostPhase(ctx, pipeline.PhaseValidate)
	return failures, nil
}

// Publish sweeps tasks until the first error, which aborts the run: the
// error returns to the caller, the remaining tasks never run, and the
// post-publish hook is skipped because the phase did not complete. The
// failing task's undo runs best-effort before returning.
func (m *Manager) Publish(ctx context.Context, gen TaskGenerator) error {
	return m.runHaltingPhase(ctx, gen, pipeline.PhasePublish)
}

// Finalize has the same abort-on-first-error semantics as Publish; hooks
// are expected to keep finalize idempotent bookkeeping.
func (m *Manager) Finalize(ctx context.Context, gen TaskGenerator) error {
	return m.runHaltingPhase(ctx, gen, pipeline.PhaseFinalize)
}

func (m *Manager) runHaltingPhase(ctx context.Context, gen TaskGenerator, phase pipeline.Phase) error {
	if gen == nil {
		gen = NewTreeGenerator(m.tree)
	}
	ctx = m.phaseContext(ctx, phase)
	logger := m.logger.With(logging.String(logging.FieldPhase, string(phase)))

	var prev *Outcome
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, ok := gen.Next(prev)
		if !ok {
			break
		}
		runner, err := runnerFor(task)
		if err != nil {
			return err
		}
		err = m.runPhaseTask(ctx, runner, task, phase)
		m.yield()
		if err != nil {
			task.SetStatus(publish.StatusFailed)
			if phase == pipeline.PhasePublish {
				runner.RunUndo(ctx, task)
			}
			logger.Error("phase aborted",
				logging.String(logging.FieldItem, task.Item().Name()),
				logging.Error(err))
			return err
		}
		prev = &Outcome{Task: task, OK: true}
	}

	logger.Info("phase sweep complete")
	m.runPostPhase(ctx, phase)
	return nil
}

func (m *Manager) runPhaseTask(ctx context.Context, runner phaseRunner, task *publish.Task, phase pipeline.Phase) error {
	switch phase {
	case pipeline.PhasePublish:
		if err := runner.RunPublish(ctx, task); err != nil {
			return err
		}
		task.SetStatus(publish.StatusPublished)
	case pipeline.PhaseFinalize:
		if err := runner.RunFinalize(ctx, task); err != nil {
			return err
		}
		task.SetStatus(publish.StatusFinalized)
	}
	return nil
}

// runPostPhase invokes the environment's post-phase hook for the manager's
// operating context. Reporting failures are logged inside the instance and
// never abort the run.
func (m *Manager) runPostPhase(ctx context.Context, phase pipeline.Phase) {
	inst, err := m.postPhaseFor(m.context)
	if err != nil {
		m.logger.Warn("post-phase hook unavailable", logging.Error(err))
		return
	}
	if inst == nil {
		return
	}
	switch phase {
	case pipeline.PhaseValidate:
		inst.RunPostValidate(ctx, m.tree)
	case pipeline.PhasePublish:
		inst.RunPostPublish(ctx, m.tree)
	case pipeline.PhaseFinalize:
		inst.RunPostFinalize(ctx, m.tree)
	}
	m.yield()
}

func (m *Manager) phaseContext(ctx context.Context, phase pipeline.Phase) context.Context {
	ctx = pipeline.WithPhase(ctx, string(phase))
	return pipeline.WithRunID(ctx, uuid.NewString())
}

var _ phaseRunner = (*hook.PublishInstance)(nil)
