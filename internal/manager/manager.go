package manager

import (
	"context"
	"fmt"
	"log/slog"

	"parcel/internal/hook"
	"parcel/internal/logging"
	"parcel/internal/pipeline"
	"parcel/internal/project"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

// Options configures a Manager.
type Options struct {
	// Logger receives orchestration and hook logging. Nil means silent.
	Logger *slog.Logger
	// Registry maps hook identifiers to implementations.
	Registry *hook.Registry
	// Resolver maps contexts to environment configuration.
	Resolver *settings.Resolver
	// Context is the operating context stamped onto top-level collected
	// items that did not pin their own.
	Context project.Context
	// Yield, when set, is called after every hook invocation so a host
	// event loop can stay responsive. Execution is single-threaded; this
	// is a cooperative yield point, not concurrency.
	Yield func()
}

// Manager owns the publish tree and drives collection, task attachment and
// the validate/publish/finalize phases.
type Manager struct {
	logger   *slog.Logger
	registry *hook.Registry
	resolver *settings.Resolver
	context  project.Context
	yield    func()

	tree  *publish.Tree
	cache *settings.Cache

	// Instances cached per context key. Instance construction resolves
	// settings, so reuse keeps resolution once per (plugin, context).
	collectors map[string]*hook.CollectorInstance
	plugins    map[string][]*hook.PublishInstance
	postPhases map[string]*hook.PostPhaseInstance
}

// New builds a manager with an empty tree.
func New(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "manager", "hook registry is required", nil)
	}
	if opts.Resolver == nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "manager", "settings resolver is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	yield := opts.Yield
	if yield == nil {
		yield = func() {}
	}
	return &Manager{
		logger:     logger.With(logging.String(logging.FieldComponent, "manager")),
		registry:   opts.Registry,
		resolver:   opts.Resolver,
		context:    opts.Context,
		yield:      yield,
		tree:       publish.NewTree(),
		cache:      settings.NewCache(),
		collectors: make(map[string]*hook.CollectorInstance),
		plugins:    make(map[string][]*hook.PublishInstance),
		postPhases: make(map[string]*hook.PostPhaseInstance),
	}, nil
}

// Tree returns the manager's publish tree.
func (m *Manager) Tree() *publish.Tree { return m.tree }

// Context returns the manager's operating context.
func (m *Manager) Context() project.Context { return m.context }

// SetContext changes the operating context used for future collection.
func (m *Manager) SetContext(ctx project.Context) { m.context = ctx }

// CollectFiles runs the collector over paths not yet collected, attaches
// plugins to the new items and returns them. Re-submitting an
// already-collected path is a logged no-op.
func (m *Manager) CollectFiles(ctx context.Context, paths []string) ([]*publish.Item, error) {
	collector, err := m.collectorFor(m.context)
	if err != nil {
		return nil, err
	}

	collected := make(map[string]bool)
	for _, item := range m.tree.PersistentItems() {
		if path := item.Properties().String(publish.PropCollectedFilePath); path != "" {
			collected[path] = true
		}
	}

	var newItems []*publish.Item
	for _, path := range paths {
		if collected[path] {
			m.logger.Info("path already collected; skipping", logging.String("path", path))
			continue
		}
		before := snapshot(m.tree)
		collector.RunProcessFile(ctx, m.tree.Root(), path)
		m.yield()
		created := diff(m.tree, before)
		for _, item := range created {
			if item.Parent() != nil && item.Parent().IsRoot() {
				if err := item.SetPersistent(true); err != nil {
					return nil, err
				}
				item.Properties().Set(publish.PropCollectedFilePath, path)
				if item.Context().IsZero() {
					item.SetContext(m.context)
				}
			}
			collector.RunOnContextChanged(ctx, item)
			m.yield()
		}
		if err := m.AttachPlugins(ctx, created); err != nil {
			return nil, err
		}
		collected[path] = true
		newItems = append(newItems, created...)
	}
	return newItems, nil
}

// CollectSession rebuilds the live-session subtree: all non-persistent
// items are discarded and the session collector repopulates them from
// scratch. Never idempotent; session state may have changed.
func (m *Manager) CollectSession(ctx context.Context) ([]*publish.Item, error) {
	collector, err := m.collectorFor(m.context)
	if err != nil {
		return nil, err
	}

	m.tree.Clear(false)
	before := snapshot(m.tree)
	collector.RunProcessCurrentSession(ctx, m.tree.Root())
	m.yield()
	created := diff(m.tree, before)
	for _, item := range created {
		if item.Parent() != nil && item.Parent().IsRoot() && item.Context().IsZero() {
			item.SetContext(m.context)
		}
		collector.RunOnContextChanged(ctx, item)
		m.yield()
	}
	if err := m.AttachPlugins(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// CollectedFiles lists the source paths stamped onto persistent items.
func (m *Manager) CollectedFiles() []string {
	var paths []string
	for _, item := range m.tree.PersistentItems() {
		if path := item.Properties().String(publish.PropCollectedFilePath); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// MarkStale flags every item collected from path as out of date with its
// source. Returns the flagged items, if any.
func (m *Manager) MarkStale(path string) []*publish.Item {
	var stale []*publish.Item
	for _, item := range m.tree.Items() {
		if item.Properties().String(publish.PropCollectedFilePath) != path {
			continue
		}
		item.Properties().Set(publish.PropSourceStale, true)
		stale = append(stale, item)
	}
	if len(stale) > 0 {
		m.logger.Warn("collected items are stale",
			logging.String("path", path),
			logging.Int("items", len(stale)))
	}
	return stale
}

// SetItemContext reassigns an item's context, re-derives its
// context-dependent properties and recomputes its tasks. Existing task
// objects for the item are discarded.
func (m *Manager) SetItemContext(ctx context.Context, item *publish.Item, pctx project.Context) error {
	item.SetContext(pctx)
	if collector, err := m.collectorFor(pctx); err == nil {
		collector.RunOnContextChanged(ctx, item)
		m.yield()
	} else {
		m.logger.Warn("no collector for new context",
			logging.String(logging.FieldContext, pctx.String()),
			logging.Error(err))
	}
	return m.AttachPlugins(ctx, []*publish.Item{item})
}

// AttachPlugins recomputes each item's task set from scratch for its
// current context. Previously attached tasks are replaced; task identity
// does not survive this call.
func (m *Manager) AttachPlugins(ctx context.Context, items []*publish.Item) error {
	for _, item := range items {
		pctx := item.Context()
		instances, err := m.pluginsFor(pctx)
		if err != nil {
			return err
		}
		item.ClearTasks()
		for _, inst := range instances {
			if !inst.Matches(item) {
				continue
			}
			acceptance := inst.RunAccept(ctx, inst.Settings(), item)
			m.yield()
			if !acceptance.Accepted || !acceptance.Visible {
				continue
			}
			baseline, ok := m.cache.Get(pluginKey(inst), pctx)
			if !ok {
				// pluginsFor seeded the cache; a miss means the context
				// key changed underneath us.
				baseline = inst.Settings().Clone()
			}
			values := inst.RunInitTaskSettings(ctx, baseline, item)
			m.yield()
			task := publish.NewTask(item, inst, values)
			task.SetChecked(acceptance.Checked)
			task.SetActive(acceptance.Enabled && acceptance.Checked)
			item.AddTask(task)
		}
		m.applySavedTaskStates(item)
	}
	return nil
}

// applySavedTaskStates re-applies task flags carried over from a loaded
// tree file, matching rebuilt tasks to saved state by plugin name.
func (m *Manager) applySavedTaskStates(item *publish.Item) {
	states := item.SavedTaskStates()
	if len(states) == 0 {
		return
	}
	byName := make(map[string]publish.TaskState, len(states))
	for _, state := range states {
		byName[state.Plugin] = state
	}
	for _, task := range item.Tasks() {
		if state, ok := byName[task.Name()]; ok {
			task.SetActive(state.Active)
			task.SetChecked(state.Checked)
		}
	}
	item.ClearSavedTaskStates()
}

// Save writes the tree to path for a later resume.
func (m *Manager) Save(path string) error {
	return m.tree.Save(path)
}

// Load replaces the tree with the one saved at path and rebuilds tasks by
// re-attaching plugins, re-applying saved per-task flags by plugin name.
func (m *Manager) Load(ctx context.Context, path string) error {
	tree, err := publish.LoadTree(path)
	if err != nil {
		return err
	}
	m.tree = tree
	return m.AttachPlugins(ctx, tree.Items())
}

func (m *Manager) collectorFor(pctx project.Context) (*hook.CollectorInstance, error) {
	key := pctx.Key()
	if inst, ok := m.collectors[key]; ok {
		return inst, nil
	}
	def, err := m.resolver.CollectorDefinition(pctx)
	if err != nil {
		return nil, err
	}
	impl, err := m.registry.NewCollector(def.Hook)
	if err != nil {
		return nil, err
	}
	inst, err := hook.NewCollectorInstance(def.Hook, impl, def.Settings, pctx, m.logger)
	if err != nil {
		return nil, err
	}
	m.collectors[key] = inst
	return inst, nil
}

func (m *Manager) pluginsFor(pctx project.Context) ([]*hook.PublishInstance, error) {
	key := pctx.Key()
	if instances, ok := m.plugins[key]; ok {
		return instances, nil
	}
	defs, err := m.resolver.PluginDefinitions(pctx)
	if err != nil {
		return nil, err
	}
	instances := make([]*hook.PublishInstance, 0, len(defs))
	for _, def := range defs {
		impl, err := m.registry.NewPublishPlugin(def.Hook)
		if err != nil {
			return nil, err
		}
		inst, err := hook.NewPublishInstance(def.Name, def.Hook, impl, def.Settings, m.logger)
		if err != nil {
			return nil, err
		}
		m.cache.Add(pluginKey(inst), pctx, inst.Settings())
		instances = append(instances, inst)
	}
	m.plugins[key] = instances
	return instances, nil
}

func (m *Manager) postPhaseFor(pctx project.Context) (*hook.PostPhaseInstance, error) {
	key := pctx.Key()
	if inst, ok := m.postPhases[key]; ok {
		return inst, nil
	}
	name, err := m.resolver.PostPhaseHook(pctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	impl, err := m.registry.NewPostPhase(name)
	if err != nil {
		return nil, err
	}
	inst := hook.NewPostPhaseInstance(name, impl, m.logger)
	m.postPhases[key] = inst
	return inst, nil
}

func pluginKey(inst *hook.PublishInstance) string {
	return fmt.Sprintf("%s@%s", inst.Name(), inst.Hook())
}

// snapshot records the identity of every item currently in the tree.
func snapshot(tree *publish.Tree) map[*publish.Item]bool {
	seen := make(map[*publish.Item]bool)
	for _, item := range tree.Items() {
		seen[item] = true
	}
	return seen
}

// diff returns the items present now that were absent from the snapshot,
// in traversal order.
func diff(tree *publish.Tree, before map[*publish.Item]bool) []*publish.Item {
	var created []*publish.Item
	for _, item := range tree.Items() {
		if !before[item] {
			created = append(created, item)
		}
	}
	return created
}
