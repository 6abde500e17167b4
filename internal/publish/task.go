package publish

import (
	"parcel/internal/settings"
)

// Status tracks where a task is in the validate/publish/finalize lifecycle.
// Invalid and Failed are terminal for the current run only; re-running a
// phase resets them.
type Status string

const (
	StatusUnvalidated Status = "unvalidated"
	StatusValid       Status = "valid"
	StatusInvalid     Status = "invalid"
	StatusPublished   Status = "published"
	StatusFinalized   Status = "finalized"
	StatusFailed      Status = "failed"
)

// Plugin is the view of a configured publish plugin the tree needs: enough
// identity to serialize and re-bind tasks, without depending on the hook
// machinery that drives it.
type Plugin interface {
	// Name is the configured instance name from the environment.
	Name() string
	// Hook is the registered hook identifier backing the instance.
	Hook() string
}

// Task binds one item to one publish plugin, with a private copy of the
// plugin's resolved settings.
type Task struct {
	item   *Item
	plugin Plugin

	settings settings.Values
	active   bool
	checked  bool
	status   Status
}

// NewTask builds a task. The settings are taken as-is; callers hand in a
// copy that is already private to this task.
func NewTask(item *Item, plugin Plugin, values settings.Values) *Task {
	return &Task{
		item:     item,
		plugin:   plugin,
		settings: values,
		active:   true,
		checked:  true,
		status:   StatusUnvalidated,
	}
}

func (t *Task) Item() *Item               { return t.item }
func (t *Task) Plugin() Plugin            { return t.plugin }
func (t *Task) Settings() settings.Values { return t.settings }
func (t *Task) Status() Status            { return t.status }

func (t *Task) SetStatus(status Status) { t.status = status }

// Active reports whether the task participates in phase runs.
func (t *Task) Active() bool       { return t.active }
func (t *Task) SetActive(on bool)  { t.active = on }
func (t *Task) Checked() bool      { return t.checked }
func (t *Task) SetChecked(on bool) { t.checked = on }

// Name is the plugin instance name, used for display and for re-binding
// task state across a save/load round trip.
func (t *Task) Name() string {
	if t.plugin == nil {
		return ""
	}
	return t.plugin.Name()
}
