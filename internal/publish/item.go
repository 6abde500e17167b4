package publish

import (
	"fmt"
	"strings"

	"parcel/internal/pipeline"
	"parcel/internal/project"
)

// Item is one node in the publish tree: a publishable thing discovered by
// a collector, carrying a dotted type taxonomy ("file.texture"), an open
// property bag, attached tasks, and tree links.
type Item struct {
	itemType    string
	name        string
	typeDisplay string

	context    project.Context
	contextSet bool

	properties Properties

	active     bool
	checked    bool
	enabled    bool
	expanded   bool
	persistent bool

	tasks    []*Task
	parent   *Item
	children []*Item

	// Task state carried from a loaded tree file until plugins are
	// re-attached.
	savedTasks []TaskState
}

func newItem(itemType, typeDisplay, name string, parent *Item) *Item {
	return &Item{
		itemType:    itemType,
		typeDisplay: typeDisplay,
		name:        name,
		properties:  make(Properties),
		active:      true,
		checked:     true,
		enabled:     true,
		expanded:    true,
		parent:      parent,
	}
}

func (i *Item) Type() string        { return i.itemType }
func (i *Item) TypeDisplay() string { return i.typeDisplay }
func (i *Item) Name() string        { return i.name }
func (i *Item) SetName(name string) { i.name = name }

// IsType reports whether the item's dotted type matches a spec like
// "file.*" or the exact type. Matching is prefix-segment based: "file"
// matches "file.texture".
func (i *Item) IsType(spec string) bool {
	if spec == "*" || spec == i.itemType {
		return true
	}
	if trimmed, ok := strings.CutSuffix(spec, ".*"); ok {
		return i.itemType == trimmed || strings.HasPrefix(i.itemType, trimmed+".")
	}
	return false
}

// Context returns the item's own context when one was set, otherwise the
// nearest ancestor's. Context resolution is lazy so re-parenting or a
// parent context change is reflected without touching every descendant.
func (i *Item) Context() project.Context {
	for node := i; node != nil; node = node.parent {
		if node.contextSet {
			return node.context
		}
	}
	return project.Context{}
}

// SetContext pins the item's own context, overriding inheritance.
func (i *Item) SetContext(ctx project.Context) {
	i.context = ctx
	i.contextSet = true
}

func (i *Item) Properties() Properties { return i.properties }

func (i *Item) Active() bool        { return i.active }
func (i *Item) SetActive(on bool)   { i.active = on }
func (i *Item) Checked() bool       { return i.checked }
func (i *Item) SetChecked(on bool)  { i.checked = on }
func (i *Item) Enabled() bool       { return i.enabled }
func (i *Item) SetEnabled(on bool)  { i.enabled = on }
func (i *Item) Expanded() bool      { return i.expanded }
func (i *Item) SetExpanded(on bool) { i.expanded = on }

func (i *Item) Persistent() bool { return i.persistent }

// SetPersistent marks a top-level item as surviving session re-collection.
// Persistence is only meaningful directly under the root.
func (i *Item) SetPersistent(on bool) error {
	if i.parent == nil || !i.parent.IsRoot() {
		return pipeline.Wrap(pipeline.ErrValidation, "", "",
			fmt.Sprintf("item %q is not top-level; only top-level items can be persistent", i.name), nil)
	}
	i.persistent = on
	return nil
}

func (i *Item) IsRoot() bool  { return i.parent == nil }
func (i *Item) Parent() *Item { return i.parent }

// Children returns the item's direct children in creation order. The
// returned slice is a copy; mutate the tree through CreateItem/RemoveItem.
func (i *Item) Children() []*Item {
	out := make([]*Item, len(i.children))
	copy(out, i.children)
	return out
}

// CreateItem appends a child. The child inherits this item's context until
// SetContext pins its own.
func (i *Item) CreateItem(itemType, typeDisplay, name string) *Item {
	child := newItem(itemType, typeDisplay, name, i)
	i.children = append(i.children, child)
	return child
}

// RemoveItem detaches a direct child and its whole subtree.
func (i *Item) RemoveItem(child *Item) error {
	for idx, candidate := range i.children {
		if candidate == child {
			i.children = append(i.children[:idx], i.children[idx+1:]...)
			child.parent = nil
			return nil
		}
	}
	return pipeline.Wrap(pipeline.ErrNotFound, "", "",
		fmt.Sprintf("item %q is not a child of %q", child.name, i.name), nil)
}

// Tasks returns the attached tasks in attachment order.
func (i *Item) Tasks() []*Task {
	out := make([]*Task, len(i.tasks))
	copy(out, i.tasks)
	return out
}

// AddTask attaches a task built against this item.
func (i *Item) AddTask(task *Task) {
	i.tasks = append(i.tasks, task)
}

// ClearTasks drops all attached tasks, ahead of a plugin re-attachment.
func (i *Item) ClearTasks() {
	i.tasks = nil
}

func (i *Item) String() string {
	return fmt.Sprintf("%s (%s)", i.name, i.itemType)
}
