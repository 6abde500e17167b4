package hook

import (
	"context"
	"log/slog"

	"parcel/internal/logging"
	"parcel/internal/publish"
)

// PostPhaseInstance wraps a post-phase reporting hook. Reporting is
// advisory: a failing report is logged and never aborts the run that
// produced it.
type PostPhaseInstance struct {
	hookID string
	impl   PostPhase
	logger *slog.Logger
}

func NewPostPhaseInstance(hookID string, impl PostPhase, logger *slog.Logger) *PostPhaseInstance {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PostPhaseInstance{
		hookID: hookID,
		impl:   impl,
		logger: logger.With(logging.String(logging.FieldPlugin, hookID)),
	}
}

func (p *PostPhaseInstance) Hook() string { return p.hookID }

func (p *PostPhaseInstance) RunPostValidate(ctx context.Context, tree *publish.Tree) {
	p.run("post-validate", func() error { return p.impl.PostValidate(ctx, tree) })
}

func (p *PostPhaseInstance) RunPostPublish(ctx context.Context, tree *publish.Tree) {
	p.run("post-publish", func() error { return p.impl.PostPublish(ctx, tree) })
}

func (p *PostPhaseInstance) RunPostFinalize(ctx context.Context, tree *publish.Tree) {
	p.run("post-finalize", func() error { return p.impl.PostFinalize(ctx, tree) })
}

func (p *PostPhaseInstance) run(name string, fn func() error) {
	if err := capture(fn); err != nil {
		p.logger.Error("post-phase hook failed",
			logging.String("hook_phase", name),
			logging.Error(err))
	}
}
