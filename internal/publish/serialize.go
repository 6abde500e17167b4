package publish

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"parcel/internal/pipeline"
	"parcel/internal/project"
)

// TaskState is the slice of task state that survives a save/load round
// trip. Settings are not persisted; tasks are rebuilt by re-attaching
// plugins after load and the saved state is re-applied by plugin name.
type TaskState struct {
	Plugin  string `json:"plugin"`
	Active  bool   `json:"active"`
	Checked bool   `json:"checked"`
	Status  Status `json:"status"`
}

type contextState struct {
	Project string `json:"project,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Step    string `json:"step,omitempty"`
	Task    string `json:"task,omitempty"`
}

type itemState struct {
	Type        string         `json:"type"`
	TypeDisplay string         `json:"type_display,omitempty"`
	Name        string         `json:"name"`
	Context     *contextState  `json:"context,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Active      bool           `json:"active"`
	Checked     bool           `json:"checked"`
	Enabled     bool           `json:"enabled"`
	Expanded    bool           `json:"expanded"`
	Persistent  bool           `json:"persistent"`
	Tasks       []TaskState    `json:"tasks,omitempty"`
	Children    []itemState    `json:"children,omitempty"`
}

type treeState struct {
	Version int         `json:"version"`
	Items   []itemState `json:"items"`
}

const treeStateVersion = 1

// SavedTaskStates returns the task state carried over from a loaded tree
// file, for re-application after plugins are re-attached.
func (i *Item) SavedTaskStates() []TaskState {
	return i.savedTasks
}

// ClearSavedTaskStates drops the carried state once it has been applied.
func (i *Item) ClearSavedTaskStates() {
	i.savedTasks = nil
}

func snapshotItem(item *Item) itemState {
	state := itemState{
		Type:        item.itemType,
		TypeDisplay: item.typeDisplay,
		Name:        item.name,
		Properties:  map[string]any(item.properties.Clone()),
		Active:      item.active,
		Checked:     item.checked,
		Enabled:     item.enabled,
		Expanded:    item.expanded,
		Persistent:  item.persistent,
	}
	if item.contextSet {
		ctx := item.context
		state.Context = &contextState{Project: ctx.Project, Entity: ctx.Entity, Step: ctx.Step, Task: ctx.Task}
	}
	for _, task := range item.tasks {
		state.Tasks = append(state.Tasks, TaskState{
			Plugin:  task.Name(),
			Active:  task.active,
			Checked: task.checked,
			Status:  task.status,
		})
	}
	for _, child := range item.children {
		state.Children = append(state.Children, snapshotItem(child))
	}
	return state
}

func restoreItem(parent *Item, state itemState) {
	item := parent.CreateItem(state.Type, state.TypeDisplay, state.Name)
	if state.Context != nil {
		item.SetContext(project.Context{
			Project: state.Context.Project,
			Entity:  state.Context.Entity,
			Step:    state.Context.Step,
			Task:    state.Context.Task,
		})
	}
	if state.Properties != nil {
		item.properties = Properties(state.Properties)
	}
	item.active = state.Active
	item.checked = state.Checked
	item.enabled = state.Enabled
	item.expanded = state.Expanded
	item.persistent = state.Persistent
	item.savedTasks = state.Tasks
	for _, child := range state.Children {
		restoreItem(item, child)
	}
}

// Save writes the tree to path as JSON, guarded by a sibling lock file so
// a watcher process and an interactive session do not interleave writes.
func (t *Tree) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "tree save", "creating tree directory", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "tree save", "acquiring tree lock", err)
	}
	defer lock.Unlock()

	state := treeState{Version: treeStateVersion}
	for _, child := range t.root.children {
		state.Items = append(state.Items, snapshotItem(child))
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return pipeline.Wrap(pipeline.ErrValidation, "", "tree save", "encoding tree", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "tree save", "writing tree file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "tree save", "replacing tree file", err)
	}
	return nil
}

// LoadTree reads a tree file written by Save. Tasks come back as saved
// state only; call SavedTaskStates after re-attaching plugins.
func LoadTree(path string) (*Tree, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "tree load", "acquiring tree lock", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrNotFound, "", "tree load", "reading tree file", err)
	}
	var state treeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrValidation, "", "tree load", "decoding tree file", err)
	}
	tree := NewTree()
	for _, item := range state.Items {
		restoreItem(tree.root, item)
	}
	return tree, nil
}
