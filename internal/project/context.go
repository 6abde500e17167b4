package project

import (
	"fmt"
	"strings"
)

// Context identifies a position in the project hierarchy. It is the key used
// for settings resolution and the link target when publishes are registered.
// A zero Context is valid only for the tree's root item.
type Context struct {
	Project string `json:"project" yaml:"project"`
	Entity  string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Step    string `json:"step,omitempty" yaml:"step,omitempty"`
	Task    string `json:"task,omitempty" yaml:"task,omitempty"`
}

// IsZero reports whether the context carries no hierarchy information at all.
func (c Context) IsZero() bool {
	return c.Project == "" && c.Entity == "" && c.Step == "" && c.Task == ""
}

// HasTask reports whether the context is linked to a task. Publishing requires
// a task link so the registry can associate the record with trackable work.
func (c Context) HasTask() bool {
	return strings.TrimSpace(c.Task) != ""
}

// Key returns a stable representation suitable for use as a cache key.
func (c Context) Key() string {
	return strings.Join([]string{c.Project, c.Entity, c.Step, c.Task}, "\x1f")
}

func (c Context) String() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{c.Project, c.Entity, c.Step, c.Task} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "<empty context>"
	}
	return strings.Join(parts, "/")
}

// Fields returns the template fields derived from the context. Empty
// components are omitted so template expansion can report what is missing.
func (c Context) Fields() map[string]string {
	fields := make(map[string]string, 4)
	if c.Project != "" {
		fields["project"] = c.Project
	}
	if c.Entity != "" {
		fields["entity"] = c.Entity
	}
	if c.Step != "" {
		fields["step"] = c.Step
	}
	if c.Task != "" {
		fields["task"] = c.Task
	}
	return fields
}

// Parse builds a Context from a "project/entity/step/task" path. Trailing
// components may be omitted.
func Parse(value string) (Context, error) {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return Context{}, fmt.Errorf("empty context path")
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 4 {
		return Context{}, fmt.Errorf("context path %q has too many components", value)
	}
	var ctx Context
	fields := []*string{&ctx.Project, &ctx.Entity, &ctx.Step, &ctx.Task}
	for i, part := range parts {
		*fields[i] = strings.TrimSpace(part)
	}
	return ctx, nil
}
