package hook

import (
	"fmt"
	"sort"
	"sync"

	"parcel/internal/pipeline"
)

// Registry maps hook identifiers ("basic.collector") to factories. Each
// lookup builds a fresh hook value so instances never share state.
type Registry struct {
	mu         sync.Mutex
	collectors map[string]func() Collector
	publishers map[string]func() PublishPlugin
	postPhases map[string]func() PostPhase
}

func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]func() Collector),
		publishers: make(map[string]func() PublishPlugin),
		postPhases: make(map[string]func() PostPhase),
	}
}

// RegisterCollector adds a collector factory under the given identifier.
// Re-registering an identifier replaces the previous factory.
func (r *Registry) RegisterCollector(name string, factory func() Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[name] = factory
}

// RegisterPublishPlugin adds a publish plugin factory.
func (r *Registry) RegisterPublishPlugin(name string, factory func() PublishPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[name] = factory
}

// RegisterPostPhase adds a post-phase hook factory.
func (r *Registry) RegisterPostPhase(name string, factory func() PostPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postPhases[name] = factory
}

// NewCollector builds a fresh collector for the identifier.
func (r *Registry) NewCollector(name string) (Collector, error) {
	r.mu.Lock()
	factory, ok := r.collectors[name]
	r.mu.Unlock()
	if !ok {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, name, "",
			fmt.Sprintf("no collector registered as %q", name), nil)
	}
	return factory(), nil
}

// NewPublishPlugin builds a fresh publish plugin for the identifier.
func (r *Registry) NewPublishPlugin(name string) (PublishPlugin, error) {
	r.mu.Lock()
	factory, ok := r.publishers[name]
	r.mu.Unlock()
	if !ok {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, name, "",
			fmt.Sprintf("no publish plugin registered as %q", name), nil)
	}
	return factory(), nil
}

// NewPostPhase builds a fresh post-phase hook for the identifier.
func (r *Registry) NewPostPhase(name string) (PostPhase, error) {
	r.mu.Lock()
	factory, ok := r.postPhases[name]
	r.mu.Unlock()
	if !ok {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, name, "",
			fmt.Sprintf("no post-phase hook registered as %q", name), nil)
	}
	return factory(), nil
}

// Names lists every registered hook identifier, sorted, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.collectors {
		names = append(names, name)
	}
	for name := range r.publishers {
		names = append(names, name)
	}
	for name := range r.postPhases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
