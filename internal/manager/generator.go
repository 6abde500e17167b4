package manager

import (
	"parcel/internal/publish"
)

// Outcome is the per-task result fed back into a task generator so a
// custom traversal strategy can react to what just happened.
type Outcome struct {
	Task *publish.Task
	OK   bool
	Err  error
}

// TaskGenerator produces the task stream for one phase sweep. Next receives
// the previous task's outcome (nil on the first call), which lets a
// generator short-circuit remaining siblings after a failure or reorder
// adaptively. Returning ok=false ends the sweep.
type TaskGenerator interface {
	Next(prev *Outcome) (*publish.Task, bool)
}

// treeGenerator is the default traversal: active and checked tasks on
// active items, in tree order. The task list is snapshotted once at
// construction; phases must not grow the tree mid-sweep.
type treeGenerator struct {
	tasks []*publish.Task
	idx   int
}

// NewTreeGenerator builds the default generator over the tree's current
// active tasks.
func NewTreeGenerator(tree *publish.Tree) TaskGenerator {
	var tasks []*publish.Task
	for _, item := range tree.Items() {
		if !item.Active() || !item.Checked() {
			continue
		}
		for _, task := range item.Tasks() {
			if task.Active() && task.Checked() {
				tasks = append(tasks, task)
			}
		}
	}
	return &treeGenerator{tasks: tasks}
}

func (g *treeGenerator) Next(_ *Outcome) (*publish.Task, bool) {
	if g.idx >= len(g.tasks) {
		return nil, false
	}
	task := g.tasks[g.idx]
	g.idx++
	return task, true
}

// GeneratorFunc adapts a function to the TaskGenerator interface.
type GeneratorFunc func(prev *Outcome) (*publish.Task, bool)

func (f GeneratorFunc) Next(prev *Outcome) (*publish.Task, bool) { return f(prev) }
