package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"parcel/internal/pipeline"
	"parcel/internal/project"
)

// PluginDefinition names a hook and the settings configured for it in
// an environment document.
type PluginDefinition struct {
	Name     string         `yaml:"name"`
	Hook     string         `yaml:"hook"`
	Settings map[string]any `yaml:"settings"`
}

// Match selects which contexts an environment applies to. Empty fields
// match anything; "*" is accepted as an explicit wildcard.
type Match struct {
	Project string `yaml:"project"`
	Entity  string `yaml:"entity"`
	Step    string `yaml:"step"`
}

// Environment is one resolved-settings document: the collector, the
// publish plugins, and the optional post-phase hook for every context
// the match covers.
type Environment struct {
	Name           string             `yaml:"name"`
	Match          Match              `yaml:"match"`
	Collector      *PluginDefinition  `yaml:"collector"`
	PublishPlugins []PluginDefinition `yaml:"publish_plugins"`
	PostPhase      string             `yaml:"post_phase"`
}

func (m Match) matches(ctx project.Context) bool {
	return fieldMatches(m.Project, ctx.Project) &&
		fieldMatches(m.Entity, ctx.Entity) &&
		fieldMatches(m.Step, ctx.Step)
}

// specificity counts the concretely-pinned match fields so a shot-level
// environment beats a project-level one.
func (m Match) specificity() int {
	n := 0
	for _, field := range []string{m.Project, m.Entity, m.Step} {
		if field != "" && field != "*" {
			n++
		}
	}
	return n
}

func fieldMatches(pattern, value string) bool {
	return pattern == "" || pattern == "*" || pattern == value
}

// Resolver maps contexts to environments loaded from YAML documents.
type Resolver struct {
	envs []Environment
}

// NewResolver wraps pre-built environments, primarily for tests.
func NewResolver(envs []Environment) *Resolver {
	return &Resolver{envs: envs}
}

// LoadResolver reads every *.yaml / *.yml document under dir.
func LoadResolver(dir string) (*Resolver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments", "reading environments directory", err)
	}
	var envs []Environment
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments", "reading "+entry.Name(), err)
		}
		var env Environment
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments", "parsing "+entry.Name(), err)
		}
		if env.Name == "" {
			env.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return &Resolver{envs: envs}, nil
}

// EnvironmentFor returns the most specific environment matching the
// context. Two matches at the same specificity are a configuration error;
// the resolver refuses to guess.
func (r *Resolver) EnvironmentFor(ctx project.Context) (*Environment, error) {
	var (
		best     *Environment
		bestSpec = -1
		tied     []string
	)
	for i := range r.envs {
		env := &r.envs[i]
		if !env.Match.matches(ctx) {
			continue
		}
		spec := env.Match.specificity()
		switch {
		case spec > bestSpec:
			best = env
			bestSpec = spec
			tied = nil
		case spec == bestSpec:
			tied = append(tied, env.Name)
		}
	}
	if best == nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments",
			fmt.Sprintf("no environment matches context %s", ctx), nil)
	}
	if len(tied) > 0 {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments",
			fmt.Sprintf("ambiguous environments for context %s: %s", ctx, strings.Join(append([]string{best.Name}, tied...), ", ")), nil)
	}
	return best, nil
}

// CollectorDefinition returns the collector configured for the context.
func (r *Resolver) CollectorDefinition(ctx project.Context) (*PluginDefinition, error) {
	env, err := r.EnvironmentFor(ctx)
	if err != nil {
		return nil, err
	}
	if env.Collector == nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "environments",
			fmt.Sprintf("environment %q declares no collector", env.Name), nil)
	}
	return env.Collector, nil
}

// PluginDefinitions returns the publish plugins configured for the context.
func (r *Resolver) PluginDefinitions(ctx project.Context) ([]PluginDefinition, error) {
	env, err := r.EnvironmentFor(ctx)
	if err != nil {
		return nil, err
	}
	return env.PublishPlugins, nil
}

// PostPhaseHook returns the post-phase hook name for the context, or ""
// when the environment declares none.
func (r *Resolver) PostPhaseHook(ctx project.Context) (string, error) {
	env, err := r.EnvironmentFor(ctx)
	if err != nil {
		return "", err
	}
	return env.PostPhase, nil
}
